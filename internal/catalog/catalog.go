package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Error reports an unusable package descriptor.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config file %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UnknownPackageError reports a package name the descriptor does not define.
type UnknownPackageError struct {
	Name    string
	Classic bool
}

func (e *UnknownPackageError) Error() string {
	if e.Classic {
		return fmt.Sprintf("package %s is only available as a classic cbdep", e.Name)
	}
	return fmt.Sprintf("unknown package: %s", e.Name)
}

// StringList decodes a YAML value that may be either a single string or a
// sequence of strings.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*s = StringList{single}
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*s = StringList(many)
	default:
		return fmt.Errorf("line %d: expected string or list of strings", value.Line)
	}
	return nil
}

// Unarchive configures archive extraction. TopLevelDir names a directory the
// archive is expected to produce under the install directory.
type Unarchive struct {
	TopLevelDir string `yaml:"toplevel_dir"`
}

// Action is one install step. Exactly one directive field is set; url
// actions may additionally carry checksum, signature and key_url.
type Action struct {
	URL        StringList
	Checksum   string
	Signature  string
	KeyURL     string
	Unarchive  *Unarchive
	RenameDir  string
	InstallDir string
	Run        StringList
}

// UnmarshalYAML decodes an action mapping key by key. A hand-written decoder
// is needed because "unarchive:" with a null value still selects the
// unarchive directive, which a plain struct decode cannot see.
func (a *Action) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: action must be a mapping", value.Line)
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i]
		val := value.Content[i+1]

		switch key.Value {
		case "url":
			if err := val.Decode(&a.URL); err != nil {
				return err
			}
		case "checksum":
			if err := val.Decode(&a.Checksum); err != nil {
				return err
			}
		case "signature":
			if err := val.Decode(&a.Signature); err != nil {
				return err
			}
		case "key_url":
			if err := val.Decode(&a.KeyURL); err != nil {
				return err
			}
		case "unarchive":
			a.Unarchive = &Unarchive{}
			if val.Kind == yaml.MappingNode {
				if err := val.Decode(a.Unarchive); err != nil {
					return err
				}
			}
		case "rename_dir":
			if err := val.Decode(&a.RenameDir); err != nil {
				return err
			}
		case "install_dir":
			if err := val.Decode(&a.InstallDir); err != nil {
				return err
			}
		case "run":
			if err := val.Decode(&a.Run); err != nil {
				return err
			}
		default:
			return fmt.Errorf("line %d: unknown action directive %q", key.Line, key.Value)
		}
	}

	return nil
}

// Kind returns the directive name this action performs.
func (a *Action) Kind() string {
	switch {
	case len(a.URL) > 0:
		return "url"
	case a.Unarchive != nil:
		return "unarchive"
	case a.RenameDir != "":
		return "rename_dir"
	case a.InstallDir != "":
		return "install_dir"
	case len(a.Run) > 0:
		return "run"
	}
	return ""
}

// PlatformBlock describes how to install a package on the platforms its
// if_platform list names.
type PlatformBlock struct {
	Platforms StringList        `yaml:"if_platform"`
	BaseURL   string            `yaml:"base_url"`
	Env       map[string]string `yaml:"env"`
	Actions   []Action          `yaml:"actions"`
}

// Entry is one package in the catalog. Classic entries come from the
// classic-cbdeps namespace and carry no install blocks.
type Entry struct {
	Name    string
	Classic bool
	Blocks  []PlatformBlock
}

// Catalog is a parsed package descriptor.
type Catalog struct {
	path    string
	entries map[string]Entry
}

type rawCatalog struct {
	Packages map[string][]PlatformBlock `yaml:"packages"`
	Classic  struct {
		Packages []string `yaml:"packages"`
	} `yaml:"classic-cbdeps"`
}

// Load reads a package descriptor, validates it against the catalog schema
// and parses it.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	if err := validateCatalogYAML(data); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	cat := &Catalog{
		path:    path,
		entries: make(map[string]Entry, len(raw.Packages)+len(raw.Classic.Packages)),
	}
	for name, blocks := range raw.Packages {
		cat.entries[name] = Entry{Name: name, Blocks: blocks}
	}
	for _, name := range raw.Classic.Packages {
		if _, exists := cat.entries[name]; !exists {
			cat.entries[name] = Entry{Name: name, Classic: true}
		}
	}

	return cat, nil
}

// Path returns the file this catalog was loaded from.
func (c *Catalog) Path() string {
	return c.path
}

// Names returns every package name, detailed and classic, in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the entry for a package name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	entry, ok := c.entries[name]
	return entry, ok
}
