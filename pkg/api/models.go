package api

// EchoResponse is the body returned by POST /echo.
type EchoResponse struct {
	Text   string   `json:"text"`
	Used   []string `json:"used"`
	Ignore []string `json:"ignore"`
}

type TemplateInfo struct {
	Template string   `json:"template"`
	Params   []string `json:"params"`
}

type TemplatesParams struct {
	Lang string `schema:"lang"`
}
