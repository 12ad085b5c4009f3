package config

import (
	"encoding/json"
	"fmt"
)

// sectionRaw returns the JSON encoding of a single named top-level section
// of doc, for Store.GetSection.
func sectionRaw(doc *Document, name string) (json.RawMessage, error) {
	switch name {
	case "general":
		return json.Marshal(doc.General)
	case "backup":
		return json.Marshal(doc.Backup)
	case "restore":
		return json.Marshal(doc.Restore)
	case "security":
		return json.Marshal(doc.Security)
	case "ui":
		return json.Marshal(doc.UI)
	case "notifications":
		return json.Marshal(doc.Notifications)
	case "monitoring":
		return json.Marshal(doc.Monitoring)
	case "repositories":
		return json.Marshal(doc.Repositories)
	case "backup_targets":
		return json.Marshal(doc.BackupTargets)
	default:
		return nil, fmt.Errorf("config: unknown section %q", name)
	}
}

// assignSection decodes raw into the named top-level section of doc,
// replacing it wholesale. Used by Store.UpdateSection.
func assignSection(doc *Document, name string, raw json.RawMessage) error {
	switch name {
	case "general":
		return json.Unmarshal(raw, &doc.General)
	case "backup":
		return json.Unmarshal(raw, &doc.Backup)
	case "restore":
		return json.Unmarshal(raw, &doc.Restore)
	case "security":
		return json.Unmarshal(raw, &doc.Security)
	case "ui":
		return json.Unmarshal(raw, &doc.UI)
	case "notifications":
		return json.Unmarshal(raw, &doc.Notifications)
	case "monitoring":
		return json.Unmarshal(raw, &doc.Monitoring)
	case "repositories":
		return json.Unmarshal(raw, &doc.Repositories)
	case "backup_targets":
		return json.Unmarshal(raw, &doc.BackupTargets)
	default:
		return fmt.Errorf("config: unknown section %q", name)
	}
}

// deepMergeOverlay merges a project-scoped overlay document (spec.md §4.2's
// "project overlay always wins when present") over doc. The overlay is
// parsed generically so it may supply a partial document — only the keys
// and map entries it actually sets are applied: within a section, one level
// deep (a field holding a nested object is replaced whole), and wholesale
// for repository/target map entries.
func deepMergeOverlay(doc *Document, overlayRaw []byte) error {
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(overlayRaw, &overlay); err != nil {
		return err
	}

	for key, raw := range overlay {
		switch key {
		case "general":
			if err := mergeSectionInto(&doc.General, raw); err != nil {
				return err
			}
		case "backup":
			if err := mergeSectionInto(&doc.Backup, raw); err != nil {
				return err
			}
		case "restore":
			if err := mergeSectionInto(&doc.Restore, raw); err != nil {
				return err
			}
		case "security":
			if err := mergeSectionInto(&doc.Security, raw); err != nil {
				return err
			}
		case "ui":
			if err := mergeSectionInto(&doc.UI, raw); err != nil {
				return err
			}
		case "notifications":
			if err := mergeSectionInto(&doc.Notifications, raw); err != nil {
				return err
			}
		case "monitoring":
			if err := mergeSectionInto(&doc.Monitoring, raw); err != nil {
				return err
			}
		case "repositories":
			var overrides map[string]RepositoryDescriptor
			if err := json.Unmarshal(raw, &overrides); err != nil {
				return err
			}
			if doc.Repositories == nil {
				doc.Repositories = map[string]RepositoryDescriptor{}
			}
			for name, d := range overrides {
				doc.Repositories[name] = d
			}
		case "backup_targets":
			var overrides map[string]BackupTargetDescriptor
			if err := json.Unmarshal(raw, &overrides); err != nil {
				return err
			}
			if doc.BackupTargets == nil {
				doc.BackupTargets = map[string]BackupTargetDescriptor{}
			}
			for name, d := range overrides {
				doc.BackupTargets[name] = d
			}
		}
	}
	return nil
}

// mergeSectionInto overlays the fields present in raw onto an existing
// section value by round-tripping through a map: fields absent from raw
// are left untouched on dst rather than zeroed, giving partial-overlay
// semantics for flat section structs.
func mergeSectionInto(dst any, raw json.RawMessage) error {
	existing, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	var base map[string]json.RawMessage
	if err := json.Unmarshal(existing, &base); err != nil {
		return err
	}
	var override map[string]json.RawMessage
	if err := json.Unmarshal(raw, &override); err != nil {
		return err
	}
	for k, v := range override {
		base[k] = v
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, dst)
}
