package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fconil/oso/pkg/polar"
)

// Manifest is the YAML description of one policy: the classes the host
// application registers, its actor/resource blocks, and optional prototypes
// constraining the rules the blocks compile into.
type Manifest struct {
	Classes    []ClassDef     `yaml:"classes"`
	Blocks     []BlockDef     `yaml:"blocks"`
	Prototypes []PrototypeDef `yaml:"prototypes"`
}

// ClassDef registers one application class. Extends names a previously
// listed class; chains of extends build the ancestor list.
type ClassDef struct {
	Name    string `yaml:"name"`
	Extends string `yaml:"extends"`
}

// BlockDef is one actor or resource block.
type BlockDef struct {
	Type        string            `yaml:"type"` // "actor" or "resource"
	Class       string            `yaml:"class"`
	Roles       []string          `yaml:"roles"`
	Permissions []string          `yaml:"permissions"`
	Relations   map[string]string `yaml:"relations"`
	Rules       []RuleDef         `yaml:"rules"`
}

// RuleDef is one shorthand implication: Head is granted to anyone holding
// If, optionally on a related resource reached via On.
type RuleDef struct {
	Head string `yaml:"head"`
	If   string `yaml:"if"`
	On   string `yaml:"on"`
}

// PrototypeDef constrains every rule sharing Name.
type PrototypeDef struct {
	Name   string     `yaml:"name"`
	Params []ParamDef `yaml:"params"`
}

// ParamDef is one prototype parameter: a variable optionally specialized on
// a class pattern.
type ParamDef struct {
	Var   string `yaml:"var"`
	Class string `yaml:"class"`
}

// Report is the outcome of a clean compile.
type Report struct {
	Classes int
	Blocks  int
	Rules   []string
}

// LoadManifest reads and decodes a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Compile runs the manifest through a fresh engine core: register classes,
// add blocks, rewrite implications, validate. It returns the generated
// rules on success and every collected diagnostic on failure.
func (m *Manifest) Compile(logger *zap.Logger) (*Report, error) {
	var opts []polar.Option
	if logger != nil {
		opts = append(opts, polar.WithLogger(logger))
	}
	p := polar.New(opts...)

	if err := m.registerClasses(p); err != nil {
		return nil, err
	}
	for _, proto := range m.Prototypes {
		p.AddRulePrototype(proto.toRule())
	}

	for _, def := range m.Blocks {
		block, err := def.toBlock()
		if err != nil {
			return nil, err
		}
		if err := p.AddResourceBlock(block); err != nil {
			return nil, err
		}
	}
	if err := p.RewriteImplications(); err != nil {
		return nil, err
	}
	if err := p.ValidateRules(); err != nil {
		return nil, err
	}

	report := &Report{Classes: len(m.Classes), Blocks: len(m.Blocks)}
	for _, name := range p.RuleNames() {
		for _, rule := range p.Rules(name) {
			report.Rules = append(report.Rules, rule.ToPolar())
		}
	}
	return report, nil
}

// registerClasses binds each class to a fresh external instance and records
// its ancestor chain. Extends must refer to an already-listed class, so the
// chain for any class is fully known when it is registered.
func (m *Manifest) registerClasses(p *polar.Polar) error {
	ids := map[string]uint64{}
	chains := map[string][]uint64{}

	for _, class := range m.Classes {
		if class.Name == "" {
			return fmt.Errorf("class with empty name in manifest")
		}
		if _, dup := ids[class.Name]; dup {
			return fmt.Errorf("class %s listed twice in manifest", class.Name)
		}

		var ancestors []uint64
		if class.Extends != "" {
			parent, ok := chains[class.Extends]
			if !ok {
				return fmt.Errorf("class %s extends %s, which is not listed before it", class.Name, class.Extends)
			}
			ancestors = parent
		}

		id := p.NewID()
		ids[class.Name] = id
		mro := append([]uint64{id}, ancestors...)
		chains[class.Name] = mro

		p.RegisterConstant(polar.Symbol(class.Name), polar.NewTerm(polar.ExternalInstance{
			InstanceID: id,
			Repr:       class.Name,
		}))
		if err := p.RegisterMRO(polar.Symbol(class.Name), mro); err != nil {
			return err
		}
	}
	return nil
}

func (d BlockDef) toBlock() (*polar.Block, error) {
	var entity polar.EntityType
	switch d.Type {
	case "actor":
		entity = polar.EntityActor
	case "resource", "":
		entity = polar.EntityResource
	default:
		return nil, fmt.Errorf("block for %s has unknown type %q; use actor or resource", d.Class, d.Type)
	}

	block := &polar.Block{
		Entity:   entity,
		Resource: polar.NewTerm(polar.Variable(d.Class)),
	}
	if len(d.Roles) > 0 {
		t := stringList(d.Roles)
		block.Roles = &t
	}
	if len(d.Permissions) > 0 {
		t := stringList(d.Permissions)
		block.Permissions = &t
	}
	if len(d.Relations) > 0 {
		fields := map[polar.Symbol]polar.Term{}
		for name, class := range d.Relations {
			fields[polar.Symbol(name)] = polar.NewTerm(polar.Variable(class))
		}
		t := polar.NewTerm(polar.Dictionary{Fields: fields})
		block.Relations = &t
	}

	for _, rule := range d.Rules {
		impl := polar.Implication{
			Head:    polar.NewTerm(polar.String(rule.Head)),
			Implier: polar.NewTerm(polar.String(rule.If)),
		}
		if rule.On != "" {
			rel := polar.NewTerm(polar.String(rule.On))
			impl.Relation = &rel
		}
		block.Implications = append(block.Implications, impl)
	}
	return block, nil
}

func stringList(ss []string) polar.Term {
	list := make(polar.List, len(ss))
	for i, s := range ss {
		list[i] = polar.NewTerm(polar.String(s))
	}
	return polar.NewTerm(list)
}

func (d PrototypeDef) toRule() *polar.Rule {
	params := make([]polar.Parameter, len(d.Params))
	for i, p := range d.Params {
		params[i] = polar.Parameter{Parameter: polar.NewTerm(polar.Variable(p.Var))}
		if p.Class != "" {
			spec := polar.NewTerm(polar.InstancePattern{Tag: polar.Symbol(p.Class)})
			params[i].Specializer = &spec
		}
	}
	return polar.NewRule(polar.Symbol(d.Name), params...)
}
