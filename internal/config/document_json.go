package config

import "encoding/json"

// knownTopLevelKeys lists the keys Document models explicitly; everything
// else round-trips through Extra untouched.
var knownTopLevelKeys = map[string]bool{
	"schema_version": true,
	"general":        true,
	"backup":         true,
	"restore":        true,
	"security":       true,
	"ui":             true,
	"notifications":  true,
	"monitoring":     true,
	"repositories":   true,
	"backup_targets": true,
	"settings":       true,
}

// docAlias avoids infinite recursion through Document's custom (Un)MarshalJSON.
type docAlias Document

// MarshalJSON merges the typed fields with any preserved unknown top-level
// keys. Typed fields always win if a key collides (should never happen
// since Extra only ever holds keys absent from knownTopLevelKeys).
func (d Document) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(docAlias(d))
	if err != nil {
		return nil, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range d.Extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the document into typed fields and stashes any
// top-level key this Document doesn't model into Extra.
func (d *Document) UnmarshalJSON(data []byte) error {
	var alias docAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !knownTopLevelKeys[k] {
			extra[k] = v
		}
	}

	*d = Document(alias)
	if len(extra) > 0 {
		d.Extra = extra
	}
	return nil
}
