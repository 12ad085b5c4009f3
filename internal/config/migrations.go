package config

import "encoding/json"

// migrationStep upgrades a raw document (decoded as a generic map so older
// schemas that don't match current field types can still be read) from one
// schema_version to the next. Ported in meaning from the Python original's
// configuration_migrator.py (see SPEC_FULL.md's supplemented-features note);
// spec.md §4.2 only says "migrate legacy formats" in passing.
type migrationStep struct {
	fromVersion int
	migrate     func(map[string]any) error
}

var migrations = []migrationStep{
	{
		// v0/unversioned documents (pre-schema_version field) nested backend
		// credentials flags under "repositories.<name>.backend_credentials"
		// as an inline map; that data now lives exclusively in the vault, so
		// the migrator strips it and sets has_backend_credentials instead.
		fromVersion: 0,
		migrate: func(doc map[string]any) error {
			repos, _ := doc["repositories"].(map[string]any)
			for _, v := range repos {
				r, ok := v.(map[string]any)
				if !ok {
					continue
				}
				if _, hasInline := r["backend_credentials"]; hasInline {
					delete(r, "backend_credentials")
					r["has_backend_credentials"] = true
				}
			}
			doc["schema_version"] = 1
			return nil
		},
	},
	{
		// v1 -> v2: "backup_targets" was previously keyed by an integer
		// index (a JSON array) rather than by name (a JSON object).
		fromVersion: 1,
		migrate: func(doc map[string]any) error {
			if arr, ok := doc["backup_targets"].([]any); ok {
				byName := make(map[string]any, len(arr))
				for _, item := range arr {
					t, ok := item.(map[string]any)
					if !ok {
						continue
					}
					name, _ := t["name"].(string)
					if name == "" {
						continue
					}
					byName[name] = t
				}
				doc["backup_targets"] = byName
			}
			doc["schema_version"] = 2
			return nil
		},
	},
}

// migrateLegacy applies every migration step whose fromVersion is >= the
// document's current schema_version, in order, until the document reaches
// SchemaVersion. It operates on raw bytes so that a document that doesn't
// yet parse into the current Document struct (because a migration hasn't
// run yet) can still be read.
func migrateLegacy(raw []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	version := 0
	if v, ok := doc["schema_version"].(float64); ok {
		version = int(v)
	}

	for version < SchemaVersion {
		applied := false
		for _, step := range migrations {
			if step.fromVersion == version {
				if err := step.migrate(doc); err != nil {
					return nil, err
				}
				if v, ok := doc["schema_version"].(float64); ok {
					version = int(v)
				} else {
					version++
				}
				applied = true
				break
			}
		}
		if !applied {
			// No migration registered for this version: stamp current
			// version and stop rather than looping forever.
			doc["schema_version"] = SchemaVersion
			break
		}
	}

	return json.Marshal(doc)
}
