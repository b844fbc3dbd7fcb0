// Package seed loads the curated taxonomy from a YAML file into a SQL backend
// and keeps it in sync while the file changes.
package seed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/vouch/internal/backend"
)

// File is the top-level YAML document.
//
//	lists:
//	  - name: area
//	    items:
//	      - name: London
//	        sort_order: 1
//	        children:
//	          - name: Hackney
//	  - name: subcategory
//	    items:
//	      - name: Plumber
//	        parent: "category:Home"
type File struct {
	Lists []ListSpec `yaml:"lists"`
}

// ListSpec is one list kind and its top-level items.
type ListSpec struct {
	Name  string     `yaml:"name"`
	Items []ItemSpec `yaml:"items"`
}

// ItemSpec is an item with optional nested children. Parent references an
// item in another list, either by id or as "list:Name > Child".
type ItemSpec struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	CodeName  string     `yaml:"code_name"`
	SortOrder *int       `yaml:"sort_order"`
	Parent    string     `yaml:"parent"`
	Children  []ItemSpec `yaml:"children"`
}

// namespace derives stable ids for items that do not set one.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://vouch.app/seed"))

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Parse decodes a seed file into lists ready for backend.Seeder. Items are
// emitted parents first. A parent reference must point at an item defined
// earlier in the file.
func Parse(data []byte) ([]backend.SeedList, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: parse: %w", err)
	}

	r := &resolver{ids: make(map[string]struct{}), paths: make(map[string]string)}
	out := make([]backend.SeedList, 0, len(f.Lists))
	seenLists := make(map[string]struct{}, len(f.Lists))
	for _, l := range f.Lists {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			return nil, fmt.Errorf("seed: list without a name")
		}
		if _, dup := seenLists[name]; dup {
			return nil, fmt.Errorf("seed: list %q defined twice", name)
		}
		seenLists[name] = struct{}{}

		sl := backend.SeedList{Name: name}
		for _, it := range l.Items {
			if err := r.walk(&sl, name, nil, "", it); err != nil {
				return nil, err
			}
		}
		out = append(out, sl)
	}
	return out, nil
}

type resolver struct {
	ids   map[string]struct{}
	paths map[string]string // "list:A > B" -> id
}

func (r *resolver) walk(sl *backend.SeedList, list string, path []string, parentID string, it ItemSpec) error {
	name := strings.TrimSpace(it.Name)
	if name == "" {
		return fmt.Errorf("seed: %s: item without a name under %q", list, strings.Join(path, " > "))
	}
	path = append(path[:len(path):len(path)], name)
	key := list + ":" + strings.Join(path, " > ")

	id := strings.TrimSpace(it.ID)
	if id == "" {
		id = uuid.NewSHA1(namespace, []byte(key)).String()
	}
	if _, dup := r.ids[id]; dup {
		return fmt.Errorf("seed: %s: duplicate id %q", key, id)
	}

	if ref := strings.TrimSpace(it.Parent); ref != "" {
		if parentID != "" {
			return fmt.Errorf("seed: %s: nested item cannot also set parent", key)
		}
		resolved, ok := r.lookup(ref)
		if !ok {
			return fmt.Errorf("seed: %s: unknown parent %q", key, ref)
		}
		parentID = resolved
	}

	r.ids[id] = struct{}{}
	r.paths[key] = id
	sl.Items = append(sl.Items, backend.SeedItem{
		ID:        id,
		Name:      name,
		CodeName:  strings.TrimSpace(it.CodeName),
		ParentID:  parentID,
		SortOrder: it.SortOrder,
	})

	for _, child := range it.Children {
		if err := r.walk(sl, list, path, id, child); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) lookup(ref string) (string, bool) {
	if id, ok := r.paths[ref]; ok {
		return id, true
	}
	_, ok := r.ids[ref]
	return ref, ok
}
