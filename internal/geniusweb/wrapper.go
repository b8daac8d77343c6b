package geniusweb

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// wrap кодирует v как {"typeName": v}
func wrap(typeName string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", typeName, err)
	}
	return json.Marshal(map[string]json.RawMessage{typeName: body})
}

// unwrap возвращает имя типа и тело из {"typeName": {...}}
func unwrap(data []byte) (string, []byte, error) {
	if !gjson.ValidBytes(data) {
		return "", nil, fmt.Errorf("%w: invalid json", ErrNotWrapped)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return "", nil, ErrNotWrapped
	}

	var (
		name  string
		body  string
		count int
	)
	root.ForEach(func(key, value gjson.Result) bool {
		count++
		name = key.String()
		body = value.Raw
		return count < 2
	})
	if count != 1 {
		return "", nil, ErrNotWrapped
	}
	return name, []byte(body), nil
}
