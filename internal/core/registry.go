package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"hearts-echo/internal/core/utils"
	"hearts-echo/internal/storage"
)

const (
	DefaultLang = "default"

	defaultBankKey = "templates.txt"
	languagesKey   = "__languages__"
)

var (
	ErrInvalidLang = errors.New("invalid language tag")

	langRegex     = regexp.MustCompile(`^[a-z]{2,3}(-[a-z0-9]{2,8})*$`)
	bankKeyRegexp = regexp.MustCompile(`^templates\.([a-z]{2,3}(?:-[a-z0-9]{2,8})*)\.txt$`)
)

// TemplateSource supplies the raw text of template banks.
type TemplateSource interface {
	// ReadBank returns the raw bank for lang, where DefaultLang names the
	// default bank. A missing bank is reported with storage.ErrObjectNotFound.
	ReadBank(ctx context.Context, lang string) ([]byte, error)

	// ListLanguages returns the language variants available besides the default.
	ListLanguages(ctx context.Context) ([]string, error)
}

// StorageSource reads banks named templates.txt and templates.<lang>.txt
// from a bucket of a storage provider. Language tags in object names are
// matched case-insensitively.
type StorageSource struct {
	provider storage.Provider
	bucket   string

	mu   sync.RWMutex
	keys map[string]string
}

func NewStorageSource(provider storage.Provider, bucket string) *StorageSource {
	return &StorageSource{provider: provider, bucket: bucket, keys: make(map[string]string)}
}

func BankKey(lang string) string {
	if lang == DefaultLang {
		return defaultBankKey
	}
	return "templates." + lang + ".txt"
}

func (s *StorageSource) ReadBank(ctx context.Context, lang string) ([]byte, error) {
	s.mu.RLock()
	key, ok := s.keys[lang]
	s.mu.RUnlock()
	if !ok {
		key = BankKey(lang)
	}
	return s.provider.GetObject(ctx, s.bucket, key)
}

// ListLanguages also records the stored object name of each bank, so that
// templates.zh-TW.txt is served for zh-tw.
func (s *StorageSource) ListLanguages(ctx context.Context) ([]string, error) {
	objects, err := s.provider.ListObjects(ctx, s.bucket, "templates.")
	if err != nil {
		return nil, err
	}

	keys := make(map[string]string)
	for _, obj := range objects {
		name := obj.Name[strings.LastIndex(obj.Name, "/")+1:]
		match := bankKeyRegexp.FindStringSubmatch(strings.ToLower(name))
		if match == nil {
			if name != defaultBankKey {
				slog.Debug("skipping object that is not a template bank", "key", obj.Name)
			}
			continue
		}

		lang := match[1]
		if _, seen := keys[lang]; seen && name != BankKey(lang) {
			slog.Warn("duplicate template bank for language, keeping the first", "lang", lang, "key", obj.Name)
			continue
		}
		keys[lang] = obj.Name
	}

	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()

	langs := make([]string, 0, len(keys))
	for lang := range keys {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs, nil
}

// NormalizeLang maps a requested language onto a bank identifier. Empty and
// "default" select the default bank.
func NormalizeLang(lang string) (string, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	lang = strings.ReplaceAll(lang, "_", "-")
	if lang == "" || lang == DefaultLang {
		return DefaultLang, nil
	}
	if !langRegex.MatchString(lang) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLang, lang)
	}
	return lang, nil
}

type Bank struct {
	Lang      string
	Templates []Template
	// Set when the requested language had no bank and the default was served.
	Fallback bool
}

// Registry parses each template bank once and keeps it for its own lifetime.
// It is safe for concurrent use.
type Registry struct {
	source   TemplateSource
	reserved []string
	locks    *utils.MutexMap

	mu        sync.RWMutex
	banks     map[string]*Bank
	languages map[string]bool
}

type RegistryOption func(*Registry)

func WithReservedWords(words ...string) RegistryOption {
	return func(r *Registry) {
		r.reserved = words
	}
}

func NewRegistry(source TemplateSource, opts ...RegistryOption) *Registry {
	r := &Registry{
		source:   source,
		reserved: ReservedWords,
		locks:    utils.NewMutexMap(1024),
		banks:    make(map[string]*Bank),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) cached(lang string) *Bank {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.banks[lang]
}

// Bank returns the parsed bank for lang. Languages without a bank of their own
// get the default bank with Fallback set.
func (r *Registry) Bank(ctx context.Context, lang string) (*Bank, error) {
	id, err := NormalizeLang(lang)
	if err != nil {
		return nil, err
	}

	if bank := r.cached(id); bank != nil {
		return bank, nil
	}

	if id != DefaultLang {
		known, err := r.hasLanguage(ctx, id)
		if err != nil {
			return nil, err
		}
		if !known {
			return r.fallback(ctx, id)
		}
	}

	var bank *Bank
	err = r.locks.WithLock(id, func() error {
		if bank = r.cached(id); bank != nil {
			return nil
		}

		loaded, err := r.load(ctx, id)
		if err != nil {
			return err
		}
		if loaded == nil {
			return nil
		}

		r.mu.Lock()
		r.banks[id] = loaded
		r.mu.Unlock()

		bank = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	if bank == nil {
		return r.fallback(ctx, id)
	}

	return bank, nil
}

// load returns nil without error when a language bank disappeared from the source.
func (r *Registry) load(ctx context.Context, id string) (*Bank, error) {
	raw, err := r.source.ReadBank(ctx, id)
	if err != nil {
		if id != DefaultLang && errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading template bank '%s': %w", id, err)
	}

	templates, err := ParseBankReserved(raw, r.reserved)
	if err != nil {
		return nil, fmt.Errorf("error parsing template bank '%s': %w", id, err)
	}

	slog.Info("loaded template bank", "lang", id, "templates", len(templates))

	return &Bank{Lang: id, Templates: templates}, nil
}

func (r *Registry) fallback(ctx context.Context, id string) (*Bank, error) {
	def, err := r.Bank(ctx, DefaultLang)
	if err != nil {
		return nil, err
	}
	slog.Debug("no template bank for language, using default", "lang", id)
	return &Bank{Lang: id, Templates: def.Templates, Fallback: true}, nil
}

func (r *Registry) hasLanguage(ctx context.Context, id string) (bool, error) {
	langs, err := r.loadLanguages(ctx)
	if err != nil {
		return false, err
	}
	return langs[id], nil
}

func (r *Registry) loadLanguages(ctx context.Context) (map[string]bool, error) {
	r.mu.RLock()
	langs := r.languages
	r.mu.RUnlock()
	if langs != nil {
		return langs, nil
	}

	err := r.locks.WithLock(languagesKey, func() error {
		r.mu.RLock()
		langs = r.languages
		r.mu.RUnlock()
		if langs != nil {
			return nil
		}

		listed, err := r.source.ListLanguages(ctx)
		if err != nil {
			return fmt.Errorf("error listing template banks: %w", err)
		}

		langs = make(map[string]bool, len(listed))
		for _, lang := range listed {
			langs[lang] = true
		}

		r.mu.Lock()
		r.languages = langs
		r.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return langs, nil
}

// Languages lists every bank identifier the registry can serve, starting with DefaultLang.
func (r *Registry) Languages(ctx context.Context) ([]string, error) {
	langs, err := r.loadLanguages(ctx)
	if err != nil {
		return nil, err
	}

	out := []string{DefaultLang}
	for lang := range langs {
		out = append(out, lang)
	}
	sort.Strings(out[1:])
	return out, nil
}

// Vocabulary is the set of field names the default bank can consume.
func (r *Registry) Vocabulary(ctx context.Context) (FieldNames, error) {
	bank, err := r.Bank(ctx, DefaultLang)
	if err != nil {
		return FieldNames{}, err
	}
	return VocabularyOf(bank.Templates), nil
}

// Preload parses every available bank using up to workers goroutines, so that
// reserved words or unreadable banks surface at startup.
func (r *Registry) Preload(ctx context.Context, workers int) error {
	langs, err := r.Languages(ctx)
	if err != nil {
		return err
	}

	results := utils.RunInPool(ctx, r.Bank, langs, workers)

	var errs []error
	for _, res := range results {
		if res.Error != nil {
			errs = append(errs, res.Error)
		}
	}
	return errors.Join(errs...)
}
