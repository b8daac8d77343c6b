package geniusweb

import (
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// Bid - назначение значений issue (может быть частичным)
type Bid struct {
	IssueValues map[string]Value
}

func NewBid(values map[string]Value) *Bid {
	cp := make(map[string]Value, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Bid{IssueValues: cp}
}

func (b *Bid) Value(issue string) Value {
	if b == nil {
		return nil
	}
	return b.IssueValues[issue]
}

func (b *Bid) Issues() []string {
	issues := make([]string, 0, len(b.IssueValues))
	for k := range b.IssueValues {
		issues = append(issues, k)
	}
	sort.Strings(issues)
	return issues
}

func (b *Bid) Equal(other *Bid) bool {
	if b == nil || other == nil {
		return b == other
	}
	if len(b.IssueValues) != len(other.IssueValues) {
		return false
	}
	for k, v := range b.IssueValues {
		if !sameValue(v, other.IssueValues[k]) {
			return false
		}
	}
	return true
}

func (b *Bid) String() string {
	if b == nil {
		return "Bid{}"
	}
	parts := make([]string, 0, len(b.IssueValues))
	for _, k := range b.Issues() {
		parts = append(parts, k+"="+b.IssueValues[k].String())
	}
	return "Bid{" + strings.Join(parts, ", ") + "}"
}

type bidJSON struct {
	IssueValues map[string]Value `json:"issuevalues"`
}

func (b *Bid) MarshalJSON() ([]byte, error) {
	values := b.IssueValues
	if values == nil {
		values = map[string]Value{}
	}
	return json.Marshal(bidJSON{IssueValues: values})
}

func (b *Bid) UnmarshalJSON(data []byte) error {
	var raw struct {
		IssueValues json.RawMessage `json:"issuevalues"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.IssueValues = map[string]Value{}
	if len(raw.IssueValues) == 0 {
		return nil
	}
	values, err := parseValueMap(raw.IssueValues)
	if err != nil {
		return err
	}
	b.IssueValues = values
	return nil
}
