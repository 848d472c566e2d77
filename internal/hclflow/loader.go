package hclflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/flow"
	"github.com/specialistvlad/flowgridgo/internal/registry"
)

type fileConfig struct {
	Nodes    []nodeBlock    `hcl:"node,block"`
	Connects []connectBlock `hcl:"connect,block"`
}

type nodeBlock struct {
	Kind   string    `hcl:"kind,label"`
	Name   string    `hcl:"name,label"`
	Always *bool     `hcl:"always,optional"`
	Set    *setBlock `hcl:"set,block"`
}

type setBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type connectBlock struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// Load reads every .hcl file under path (a file or a directory), merges
// the definitions and builds the graph using the given registry.
func Load(ctx context.Context, path string, reg *registry.Registry) (*flow.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Resolved flow definition files.", "count", len(files), "path", path)

	merged := &fileConfig{}
	parser := hclparse.NewParser()
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", file, diags)
		}
		var cfg fileConfig
		if diags := gohcl.DecodeBody(f.Body, nil, &cfg); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", file, diags)
		}
		merged.Nodes = append(merged.Nodes, cfg.Nodes...)
		merged.Connects = append(merged.Connects, cfg.Connects...)
	}

	return buildGraph(ctx, merged, reg)
}

// buildGraph instantiates nodes through the registry, applies initial
// port values and wires the declared connections.
func buildGraph(ctx context.Context, cfg *fileConfig, reg *registry.Registry) (*flow.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	g := flow.NewGraph()
	byName := make(map[string]*flow.Node, len(cfg.Nodes))

	for _, nb := range cfg.Nodes {
		if _, exists := byName[nb.Name]; exists {
			return nil, fmt.Errorf("duplicate node name %q", nb.Name)
		}
		proto, err := reg.NewNode(nb.Kind, nb.Name)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nb.Name, err)
		}
		// Relabel with the HCL name as the stable id so connect
		// references and results stay readable.
		n := flow.NewNodeWithID(nb.Name, nb.Name)
		clonePorts(proto, n)
		n.SetCalc(proto.Calc())
		if nb.Always != nil {
			n.SetAlwaysCalc(*nb.Always)
		}
		if nb.Set != nil {
			if err := applyValues(n, nb.Set.Body); err != nil {
				return nil, fmt.Errorf("node %q: %w", nb.Name, err)
			}
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
		byName[nb.Name] = n
		logger.Debug("Added node from definition.", "kind", nb.Kind, "name", nb.Name)
	}

	for _, cb := range cfg.Connects {
		from, err := outputRef(byName, cb.From)
		if err != nil {
			return nil, err
		}
		to, err := inputRef(byName, cb.To)
		if err != nil {
			return nil, err
		}
		if _, err := g.Connect(from, to); err != nil {
			return nil, fmt.Errorf("connect %s -> %s: %w", cb.From, cb.To, err)
		}
	}

	return g, nil
}

// clonePorts mirrors the prototype's port declarations onto n.
func clonePorts(proto, n *flow.Node) {
	for _, p := range proto.Inputs() {
		if p.AllowsMultiple() {
			n.AddMultiInput(p.Name())
		} else {
			n.AddInput(p.Name())
		}
	}
	for _, p := range proto.Outputs() {
		n.AddOutput(p.Name())
	}
}

// applyValues evaluates the set block's attributes and stores them into
// the matching input ports.
func applyValues(n *flow.Node, body hcl.Body) error {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("reading set block: %w", diags)
	}
	for name, attr := range attrs {
		p, ok := n.Input(name)
		if !ok {
			return fmt.Errorf("no input port named %q", name)
		}
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("evaluating %q: %w", name, diags)
		}
		p.SetValue(v)
	}
	return nil
}

// outputRef resolves a "node.port" reference to an output port.
func outputRef(byName map[string]*flow.Node, ref string) (flow.Port, error) {
	n, portName, err := splitRef(byName, ref)
	if err != nil {
		return nil, err
	}
	p, ok := n.Output(portName)
	if !ok {
		return nil, fmt.Errorf("node %q has no output port %q", n.ID(), portName)
	}
	return p, nil
}

// inputRef resolves a "node.port" reference to an input port.
func inputRef(byName map[string]*flow.Node, ref string) (flow.Port, error) {
	n, portName, err := splitRef(byName, ref)
	if err != nil {
		return nil, err
	}
	p, ok := n.Input(portName)
	if !ok {
		return nil, fmt.Errorf("node %q has no input port %q", n.ID(), portName)
	}
	return p, nil
}

func splitRef(byName map[string]*flow.Node, ref string) (*flow.Node, string, error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return nil, "", fmt.Errorf("invalid port reference %q, want \"node.port\"", ref)
	}
	n, ok := byName[ref[:i]]
	if !ok {
		return nil, "", fmt.Errorf("unknown node %q in reference %q", ref[:i], ref)
	}
	return n, ref[i+1:], nil
}

// resolvePath returns the .hcl files a path designates: the file itself,
// or every .hcl file under a directory, recursively.
func resolvePath(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("flow path not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("accessing path %s: %w", path, err)
	}

	if !info.IsDir() {
		if filepath.Ext(path) != ".hcl" {
			return nil, fmt.Errorf("specified file is not an .hcl file: %s", path)
		}
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(p) == ".hcl" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
