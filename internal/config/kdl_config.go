package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/lcr/internal/debug"
)

// LoadKDL attempts to load configuration from the .lcr.kdl file in dir
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, KDLFile)

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", KDLFile, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}
	resolveRoot(cfg, projectRoot)
	return cfg, nil
}

// resolveRoot makes the project root absolute, relative to the directory
// holding the config file
func resolveRoot(cfg *Config, projectRoot string) {
	if cfg.Project.Root == "" {
		cfg.Project.Root = absDir(projectRoot)
		return
	}
	if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Join(absDir(projectRoot), cfg.Project.Root)
	}
	cfg.Project.Root = filepath.Clean(cfg.Project.Root)
}

func parseKDL(content string) (*Config, error) {
	cfg := Default("")

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
				if nodeName(cn) == "respect_gitignore" {
					if b, ok := firstBoolArg(cn); ok {
						cfg.Project.RespectGitignore = b
					}
				}
			}
		case "options":
			for _, cn := range n.Children {
				parseOption(&cfg.Options, cn)
			}
		case "reducers":
			cfg.Reducers = collectStringArgs(n)
		case "performance":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "serial":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Performance.Serial = b
					}
				case "max_iterations":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.MaxIterations = v
					}
				case "max_parallel":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.MaxParallel = v
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.DebounceMs = v
					}
				}
			}
		case "catalog":
			for _, cn := range n.Children {
				e, err := parseCatalogEntry(cn)
				if err != nil {
					return nil, err
				}
				cfg.Catalog = append(cfg.Catalog, e)
			}
		case "include":
			// an include block replaces the default C# glob
			cfg.Include = collectStringArgs(n)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		default:
			debug.LogCLI("ignoring unknown config node %q\n", nodeName(n))
		}
	}
	return cfg, nil
}

func parseOption(o *Options, n *document.Node) {
	b, ok := firstBoolArg(n)
	switch nodeName(n) {
	case "prefer_var":
		if ok {
			o.PreferVar = b
		}
	case "qualify_field_access":
		if ok {
			o.QualifyFieldAccess = b
		}
	case "prefer_simple_names":
		if ok {
			o.PreferSimpleNames = b
		}
	case "prefer_intrinsic_keywords":
		if ok {
			o.PreferIntrinsicKeywords = b
		}
	case "remove_unnecessary_parens":
		if ok {
			o.RemoveUnnecessaryParens = b
		}
	case "extra":
		// extra "name" true
		name, _ := firstStringArg(n)
		if name == "" || len(n.Arguments) < 2 {
			return
		}
		if v, isBool := n.Arguments[1].Value.(bool); isBool {
			if o.Extra == nil {
				o.Extra = make(map[string]bool)
			}
			o.Extra[name] = v
		}
	}
}

// parseCatalogEntry reads one catalog line:
//
//	namespace "Acme.Tools"
//	type "Acme.Tools.Widget"
//	field "Acme.Tools.Widget" "Count" type="System.Int32" static=true
//	method "Acme.Tools.Widget" "Run" "System.String" returns="System.Void"
func parseCatalogEntry(n *document.Node) (CatalogEntry, error) {
	args := collectStringArgs(n)
	e := CatalogEntry{Kind: nodeName(n)}
	if len(args) > 0 {
		e.Type = args[0]
	}
	switch e.Kind {
	case "namespace", "type":
	case "field", "property", "method":
		if len(args) < 2 {
			return e, fmt.Errorf("catalog %s needs a declaring type and a name", e.Kind)
		}
		e.Name = args[1]
		e.Params = args[2:]
		if s, ok := propString(n, "returns"); ok {
			e.Returns = s
		} else if s, ok := propString(n, "type"); ok {
			e.Returns = s
		}
		if b, ok := propBool(n, "static"); ok {
			e.Static = b
		}
	default:
		return e, fmt.Errorf("unknown catalog entry %q", e.Kind)
	}
	if e.Type == "" {
		return e, fmt.Errorf("catalog %s needs a name", e.Kind)
	}
	return e, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}
func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}
func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}
func propString(n *document.Node, key string) (string, bool) {
	if n.Properties == nil {
		return "", false
	}
	if v, ok := n.Properties[key]; ok {
		if s, ok2 := v.Value.(string); ok2 {
			return s, true
		}
	}
	return "", false
}
func propBool(n *document.Node, key string) (bool, bool) {
	if n.Properties == nil {
		return false, false
	}
	if v, ok := n.Properties[key]; ok {
		if b, ok2 := v.Value.(bool); ok2 {
			return b, true
		}
	}
	return false, false
}

// collectStringArgs reads inline arguments, or the children of a block
// where each child's name is the value: exclude { "**/gen/**" }
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
