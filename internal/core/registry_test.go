package core_test

import (
	"context"
	"errors"
	"fmt"
	"hearts-echo/internal/core"
	"hearts-echo/internal/storage"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	banks map[string]string
	reads atomic.Int32
	lists atomic.Int32
	delay time.Duration
}

func (s *countingSource) ReadBank(ctx context.Context, lang string) ([]byte, error) {
	s.reads.Add(1)
	time.Sleep(s.delay)
	raw, ok := s.banks[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, lang)
	}
	return []byte(raw), nil
}

func (s *countingSource) ListLanguages(ctx context.Context) ([]string, error) {
	s.lists.Add(1)
	var langs []string
	for lang := range s.banks {
		if lang != core.DefaultLang {
			langs = append(langs, lang)
		}
	}
	return langs, nil
}

func TestRegistry_CachesBank(t *testing.T) {
	source := &countingSource{banks: map[string]string{
		core.DefaultLang: "It is {weather}.\nI feel {mood}.",
	}}
	registry := core.NewRegistry(source)

	first, err := registry.Bank(context.Background(), "")
	require.NoError(t, err)
	second, err := registry.Bank(context.Background(), "default")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, first.Templates, 2)
	assert.Equal(t, core.DefaultLang, first.Lang)
	assert.EqualValues(t, 1, source.reads.Load())
}

func TestRegistry_ConcurrentFirstAccessParsesOnce(t *testing.T) {
	source := &countingSource{
		banks: map[string]string{
			core.DefaultLang: "It is {weather}.",
			"zh-tw":          "今天{weather}。",
		},
		delay: 50 * time.Millisecond,
	}
	registry := core.NewRegistry(source)

	var wg sync.WaitGroup
	banks := make([]*core.Bank, 16)
	for i := range banks {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			bank, err := registry.Bank(context.Background(), "zh_TW")
			assert.NoError(t, err)
			banks[i] = bank
		}()
	}
	wg.Wait()

	for _, bank := range banks {
		assert.Same(t, banks[0], bank)
	}
	assert.EqualValues(t, 1, source.reads.Load())
	assert.EqualValues(t, 1, source.lists.Load())
	assert.Equal(t, "今天{weather}。", banks[0].Templates[0].Text)
}

func TestRegistry_FallsBackToDefault(t *testing.T) {
	source := &countingSource{banks: map[string]string{
		core.DefaultLang: "It is {weather}.",
	}}
	registry := core.NewRegistry(source)

	bank, err := registry.Bank(context.Background(), "fr")
	require.NoError(t, err)

	assert.True(t, bank.Fallback)
	assert.Equal(t, "fr", bank.Lang)
	assert.Equal(t, "It is {weather}.", bank.Templates[0].Text)

	_, err = registry.Bank(context.Background(), "de")
	require.NoError(t, err)
	assert.EqualValues(t, 1, source.reads.Load(), "unknown languages must not hit the source")
}

func TestRegistry_InvalidLang(t *testing.T) {
	registry := core.NewRegistry(&countingSource{banks: map[string]string{core.DefaultLang: "Hi."}})

	_, err := registry.Bank(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, core.ErrInvalidLang)
}

func TestRegistry_ReservedWordAbortsLoad(t *testing.T) {
	source := &countingSource{banks: map[string]string{
		core.DefaultLang: "It is {weather}.\nPick {lang}.",
	}}
	registry := core.NewRegistry(source)

	_, err := registry.Bank(context.Background(), "")
	var reserved *core.ReservedWordError
	require.True(t, errors.As(err, &reserved))
	assert.Equal(t, "lang", reserved.Word)

	_, err = registry.Vocabulary(context.Background())
	assert.Error(t, err)
}

func TestRegistry_MissingDefaultBank(t *testing.T) {
	registry := core.NewRegistry(&countingSource{banks: map[string]string{}})

	_, err := registry.Bank(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestRegistry_VocabularyAndLanguages(t *testing.T) {
	source := &countingSource{banks: map[string]string{
		core.DefaultLang: "It is {weather}.\nI feel {mood} in my {clothe}.\nHello.",
		"ja":             "{weather}です。",
		"zh-tw":          "今天{weather}。",
	}}
	registry := core.NewRegistry(source)

	vocab, err := registry.Vocabulary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"clothe", "mood", "weather"}, vocab.Names())
	assert.True(t, vocab.Contains("mood"))
	assert.False(t, vocab.Contains("date"))

	langs, err := registry.Languages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "ja", "zh-tw"}, langs)
}

func TestRegistry_Preload(t *testing.T) {
	source := &countingSource{banks: map[string]string{
		core.DefaultLang: "It is {weather}.",
		"ja":             "{weather}です。",
		"ko":             "{required} 날씨",
	}}
	registry := core.NewRegistry(source)

	err := registry.Preload(context.Background(), 2)
	var reserved *core.ReservedWordError
	require.True(t, errors.As(err, &reserved))

	bank, err := registry.Bank(context.Background(), "ja")
	require.NoError(t, err)
	assert.False(t, bank.Fallback)
	assert.EqualValues(t, 3, source.reads.Load())
}

func TestStorageSource_LocalProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates.txt"), []byte("It is {weather}.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates.zh-tw.txt"), []byte("今天{weather}。\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates.backup"), []byte("{lang}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("# Docs"), 0o644))

	source := core.NewStorageSource(storage.NewLocalProvider(dir), "")

	langs, err := source.ListLanguages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"zh-tw"}, langs)

	registry := core.NewRegistry(source)

	bank, err := registry.Bank(context.Background(), "zh-TW")
	require.NoError(t, err)
	assert.Equal(t, []string{"weather"}, bank.Templates[0].Params)

	_, err = source.ReadBank(context.Background(), "fr")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestNormalizeLang(t *testing.T) {
	for input, expected := range map[string]string{
		"":        core.DefaultLang,
		" ":       core.DefaultLang,
		"DEFAULT": core.DefaultLang,
		"en":      "en",
		"zh_TW":   "zh-tw",
		"pt-BR":   "pt-br",
	} {
		got, err := core.NormalizeLang(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}

	for _, input := range []string{"e", "english!", "a/b", "en--us"} {
		_, err := core.NormalizeLang(input)
		assert.ErrorIs(t, err, core.ErrInvalidLang, input)
	}
}

func TestShippedBanks(t *testing.T) {
	registry := core.NewRegistry(core.NewStorageSource(storage.NewLocalProvider(filepath.Join("..", "..", "assets")), ""))

	require.NoError(t, registry.Preload(context.Background(), 2))

	vocab, err := registry.Vocabulary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"accessory", "activity", "clothe", "color", "companion", "companyMood", "emotionIntensity",
		"location", "mood", "occasion", "outfitStyle", "temperature", "timeOfDay", "transport", "weather",
	}, vocab.Names())

	langs, err := registry.Languages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "zh-tw"}, langs)
}

func TestStorageSource_MixedCaseLanguageTag(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates.txt"), []byte("It is {weather}.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates.zh-TW.txt"), []byte("今天{weather}。\n"), 0o644))

	registry := core.NewRegistry(core.NewStorageSource(storage.NewLocalProvider(dir), ""))

	langs, err := registry.Languages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "zh-tw"}, langs)

	bank, err := registry.Bank(context.Background(), "zh_TW")
	require.NoError(t, err)
	assert.False(t, bank.Fallback)
	assert.Equal(t, "今天{weather}。", bank.Templates[0].Text)
}
