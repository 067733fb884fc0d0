package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"
)

// Problem is an RFC 9457 problem+json body with three extensions:
//   - code: stable machine readable error code (e.g. ErrSessionInvalid)
//   - context: extra payload such as a validation fields map
//   - requestId: propagated from chi middleware.RequestID
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Errors []*huma.ErrorDetail `json:"errors,omitempty"`

	Code      string `json:"code,omitempty"`
	Context   any    `json:"context,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (p *Problem) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	if p.Title != "" {
		return p.Title
	}
	return http.StatusText(p.GetStatus())
}

// GetStatus implements huma.StatusError.
func (p *Problem) GetStatus() int {
	if p.Status == 0 {
		return http.StatusInternalServerError
	}
	return p.Status
}

// ContentType implements huma.ContentTypeFilter.
func (p *Problem) ContentType(ct string) string {
	switch ct {
	case "application/json":
		return "application/problem+json"
	case "application/cbor":
		return "application/problem+cbor"
	}
	return ct
}

// DomainProblem is satisfied by any error that knows how to describe itself as a problem.
// Modules implement it structurally so httpx never imports them.
type DomainProblem interface {
	ProblemCode() string
	ProblemStatus() int
	ProblemTitle() string
	ProblemDetail() string
	ProblemTypeURI() string
	ProblemContext() any
}

// ToProblem converts any error into a *Problem.
// huma status errors pass through untouched, DomainProblems are formatted,
// and everything else becomes an opaque 500.
func ToProblem(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(huma.StatusError); ok {
		return err
	}

	var dp DomainProblem
	if !errors.As(err, &dp) {
		return InternalProblem(ctx, "")
	}

	status := dp.ProblemStatus()
	if status >= http.StatusInternalServerError {
		// Never leak internal detail.
		p := InternalProblem(ctx, "")
		p.Code = dp.ProblemCode()
		return p
	}
	typeURI := dp.ProblemTypeURI()
	if typeURI == "" {
		typeURI = "urn:problem:" + toKebab(strings.TrimPrefix(dp.ProblemCode(), "Err"))
	}
	return &Problem{
		Type:      typeURI,
		Title:     orDefault(dp.ProblemTitle(), http.StatusText(status)),
		Status:    status,
		Detail:    orDefault(dp.ProblemDetail(), http.StatusText(status)),
		Code:      dp.ProblemCode(),
		Context:   dp.ProblemContext(),
		RequestID: middleware.GetReqID(ctx),
	}
}

// NewProblem builds a problem for errors raised outside a domain, such as in middleware.
func NewProblem(ctx context.Context, status int, code, detail string) *Problem {
	return &Problem{
		Type:      "urn:problem:" + toKebab(strings.TrimPrefix(code, "Err")),
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    orDefault(detail, http.StatusText(status)),
		Code:      code,
		RequestID: middleware.GetReqID(ctx),
	}
}

// InternalProblem builds a generic 500. An empty detail gets a safe message.
func InternalProblem(ctx context.Context, detail string) *Problem {
	p := NewProblem(ctx, http.StatusInternalServerError, "ErrInternal",
		orDefault(detail, "Something went wrong. Please try again later."))
	p.Type = "urn:problem:internal"
	return p
}

// WriteProblem renders err as problem+json on a plain net/http response.
func WriteProblem(w http.ResponseWriter, r *http.Request, err error) {
	var p *Problem
	if !errors.As(ToProblem(r.Context(), err), &p) {
		p = InternalProblem(r.Context(), "")
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.GetStatus())
	_ = json.NewEncoder(w).Encode(p)
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

// toKebab turns InvalidResetToken or USER_NOT_FOUND into invalid-reset-token or user-not-found.
func toKebab(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		if r == '_' || r == ' ' || r == '-' {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			prevLower = false
			continue
		}
		if unicode.IsUpper(r) && prevLower {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return strings.Trim(b.String(), "-")
}
