package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Per-item statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of one item of a batch.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchResult aggregates the results of a batch.
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray accepts a single id, an array of ids, or a string
// holding a JSON array of ids. Clients differ in which of these they send.
func ParseStringOrArray(param any, paramName string) ([]string, error) {
	return parseIDs(param, paramName, false)
}

// ParseIDList is ParseStringOrArray except that an empty array yields an
// empty list instead of an error.
func ParseIDList(param any, paramName string) ([]string, error) {
	return parseIDs(param, paramName, true)
}

// Present reports whether param carries a value: not nil and not a blank string.
func Present(param any) bool {
	switch v := param.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}

func parseIDs(param any, paramName string, allowEmpty bool) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	switch v := param.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		if strings.HasPrefix(v, "[") {
			var ids []any
			if err := json.Unmarshal([]byte(v), &ids); err == nil {
				return parseArray(ids, paramName, allowEmpty)
			}
		}
		return []string{v}, nil
	case []string:
		ids := make([]any, len(v))
		for i, s := range v {
			ids[i] = s
		}
		return parseArray(ids, paramName, allowEmpty)
	case []any:
		return parseArray(v, paramName, allowEmpty)
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}
}

func parseArray(items []any, paramName string, allowEmpty bool) ([]string, error) {
	if len(items) == 0 {
		if allowEmpty {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}

	result := make([]string, 0, len(items))
	for i, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
		}
		str = strings.TrimSpace(str)
		if str == "" {
			return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
		}
		result = append(result, str)
	}
	return result, nil
}

// ProcessBatch runs fn for each id in order. A failing item does not stop
// the batch; cancelling ctx marks the remaining items failed.
func ProcessBatch(ctx context.Context, ids []string, fn func(ctx context.Context, id string) error) BatchResult {
	br := BatchResult{
		Total:   len(ids),
		Results: make([]Result, 0, len(ids)),
	}

	for _, id := range ids {
		err := ctx.Err()
		if err == nil {
			err = fn(ctx, id)
		}

		if err != nil {
			br.Failed++
			br.Results = append(br.Results, Result{ID: id, Status: StatusError, Error: err.Error()})
			continue
		}
		br.Successful++
		br.Results = append(br.Results, Result{ID: id, Status: StatusSuccess})
	}
	return br
}

// AllFailed reports whether a non-empty batch had no successful item.
func (br BatchResult) AllFailed() bool {
	return br.Total > 0 && br.Successful == 0
}
