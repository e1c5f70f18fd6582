package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hearts-echo/internal/core"
	"hearts-echo/pkg/api"

	"github.com/go-chi/chi/v5"
)

type EchoService struct {
	registry *core.Registry
	selector *core.Selector
	metrics  *Metrics
	index    *IndexPage
}

func NewEchoService(registry *core.Registry, selector *core.Selector, metrics *Metrics, index *IndexPage) *EchoService {
	return &EchoService{registry: registry, selector: selector, metrics: metrics, index: index}
}

func (s *EchoService) AddRoutes(r chi.Router) {
	if s.index != nil {
		r.Get("/", s.index.ServeHTTP)
	}
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Post("/echo", RestHandler(s.Echo))
	r.Get("/fields", RestHandler(s.Fields))
	r.Get("/templates", RestHandler(s.Templates))
	r.Get("/languages", RestHandler(s.Languages))
}

func (s *EchoService) bank(r *http.Request, lang string) (*core.Bank, error) {
	bank, err := s.registry.Bank(r.Context(), lang)
	if err != nil {
		if errors.Is(err, core.ErrInvalidLang) {
			return nil, CodedError(http.StatusUnprocessableEntity, err)
		}
		slog.Error("error loading template bank", "lang", lang, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error loading template bank")
	}
	return bank, nil
}

func (s *EchoService) Echo(r *http.Request) (any, error) {
	body, err := ParseRequest[map[string]json.RawMessage](r)
	if err != nil {
		return nil, err
	}

	req, lang, err := parseEchoRequest(body, s.selector.Vocabulary())
	if err != nil {
		return nil, err
	}

	bank, err := s.bank(r, lang)
	if err != nil {
		return nil, err
	}

	res, err := s.selector.Select(bank.Templates, req)
	if err != nil {
		slog.Error("error selecting template", "lang", bank.Lang, "error", err)
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	s.metrics.observe(bank, res)

	return api.EchoResponse{Text: res.Text, Used: res.Used, Ignore: res.Ignore}, nil
}

func (s *EchoService) Fields(r *http.Request) (any, error) {
	return s.selector.Vocabulary().Names(), nil
}

func (s *EchoService) Templates(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.TemplatesParams](r)
	if err != nil {
		return nil, err
	}

	bank, err := s.bank(r, params.Lang)
	if err != nil {
		return nil, err
	}

	templates := make([]api.TemplateInfo, 0, len(bank.Templates))
	for _, tmpl := range bank.Templates {
		templates = append(templates, api.TemplateInfo{
			Template: tmpl.Text,
			Params:   append([]string{}, tmpl.Params...),
		})
	}

	return templates, nil
}

func (s *EchoService) Languages(r *http.Request) (any, error) {
	langs, err := s.registry.Languages(r.Context())
	if err != nil {
		slog.Error("error listing template banks", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing template banks")
	}
	return langs, nil
}
