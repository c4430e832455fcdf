package transport

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/and161185/stockfolio/internal/errs"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status   int
	Method   string
	Path     string
	Messages []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, strings.Join(e.Messages, "; "))
}

// Is maps well-known statuses onto the shared sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case errs.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case errs.ErrNotFound:
		return e.Status == http.StatusNotFound
	case errs.ErrAlreadyExists:
		return e.Status == http.StatusConflict
	case errs.ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case errs.ErrInvalidInput:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	}
	return false
}

func newAPIError(resp *resty.Response) *APIError {
	e := &APIError{Status: resp.StatusCode(), Messages: messages(resp.Body(), resp.StatusCode())}
	if resp.Request != nil {
		e.Method = resp.Request.Method
		if resp.Request.RawRequest != nil {
			e.Path = resp.Request.RawRequest.URL.Path
		} else {
			e.Path = resp.Request.URL
		}
	}
	return e
}

// keys holding a human message inside an error object, in priority order.
var textKeys = []string{"description", "message", "errorMessage"}

// messages extracts user-facing messages from an error body. It understands
// {"message": ...}, validation maps {"errors": {"Field": ["..."]}}, identity
// error lists [{"code":..,"description":..}], problem details {"title": ...}
// and bare strings, falling back to the status text.
func messages(body []byte, status int) []string {
	trimmed := bytes.TrimSpace(body)
	if gjson.ValidBytes(trimmed) && len(trimmed) > 0 {
		root := gjson.ParseBytes(trimmed)
		if m := root.Get("message"); m.Type == gjson.String && m.Str != "" {
			return []string{m.Str}
		}
		var out []string
		if e := root.Get("errors"); e.Exists() {
			flatten(e, &out)
		}
		if len(out) == 0 && (root.IsArray() || root.Type == gjson.String) {
			flatten(root, &out)
		}
		if len(out) > 0 {
			return out
		}
		if t := root.Get("title"); t.Type == gjson.String && t.Str != "" {
			return []string{t.Str}
		}
	} else if len(trimmed) > 0 && len(trimmed) <= 512 && !bytes.HasPrefix(trimmed, []byte("<")) {
		return []string{string(trimmed)}
	}
	return []string{http.StatusText(status)}
}

func flatten(r gjson.Result, out *[]string) {
	if r.IsObject() {
		for _, k := range textKeys {
			if v := r.Get(k); v.Type == gjson.String && v.Str != "" {
				*out = append(*out, v.Str)
				return
			}
		}
	}
	if r.IsObject() || r.IsArray() {
		r.ForEach(func(_, v gjson.Result) bool {
			flatten(v, out)
			return true
		})
		return
	}
	if r.Type == gjson.String && r.Str != "" {
		*out = append(*out, r.Str)
	}
}
