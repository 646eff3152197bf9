package searchql

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Hooks are the decision points a backend may specialize.
type Hooks interface {
	// ParseFormName rewrites the name a nested form is parsed under. The
	// resulting SubForm keeps the submitted name.
	ParseFormName(name string) string
	// ParseValue turns a non-empty scalar field into a node.
	ParseValue(formName, key string, value any) (Node, error)
	// MakeConnective joins the nodes parsed from one form. repeated is true
	// when items come from the entries of a list.
	MakeConnective(formName string, items []Node, repeated bool) (Node, error)
}

// CopiesForms lists the sub-form names whose entries always bind to
// distinct records.
var CopiesForms = map[string]bool{"changes": true}

// BaseHooks is the generic behavior: scalars become equality comparisons,
// lists and the forms in CopiesForms become ConjunctionCopies.
type BaseHooks struct {
	Registry *Registry
}

// ParseFormName returns name unchanged.
func (h BaseHooks) ParseFormName(name string) string {
	return name
}

// ParseValue returns Comparison(key, eq, value).
func (h BaseHooks) ParseValue(_, key string, value any) (Node, error) {
	return h.Registry.Comparison(key, Eq, value)
}

// MakeConnective implements Hooks.
func (h BaseHooks) MakeConnective(formName string, items []Node, repeated bool) (Node, error) {
	if repeated || CopiesForms[formName] {
		return h.Registry.ConjunctionCopies(items)
	}
	return h.Registry.Conjunction(items)
}

// Parser turns forms into expression trees.
type Parser struct {
	reg         *Registry
	hooks       Hooks
	derivations map[string][]Derivation
	log         logrus.FieldLogger
	dumpTree    bool
	subForms    []Node
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithHooks replaces BaseHooks.
func WithHooks(h Hooks) ParserOption {
	return func(p *Parser) { p.hooks = h }
}

// WithDerivations registers derivations for a form name, after any already
// registered for it.
func WithDerivations(formName string, ds ...Derivation) ParserOption {
	return func(p *Parser) {
		p.derivations[formName] = append(p.derivations[formName], ds...)
	}
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) ParserOption {
	return func(p *Parser) { p.log = l }
}

// WithTreeDump logs the parsed tree at debug level after ParseForm.
func WithTreeDump(enabled bool) ParserOption {
	return func(p *Parser) { p.dumpTree = enabled }
}

// NewParser returns a parser resolving node types through reg.
func NewParser(reg *Registry, opts ...ParserOption) *Parser {
	p := &Parser{
		reg:         reg,
		derivations: make(map[string][]Derivation),
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.hooks == nil {
		p.hooks = BaseHooks{Registry: reg}
	}
	return p
}

// Registry returns the registry the parser builds nodes with.
func (p *Parser) Registry() *Registry {
	return p.reg
}

// AddDerivation registers d for formName.
func (p *Parser) AddDerivation(formName string, d Derivation) {
	p.derivations[formName] = append(p.derivations[formName], d)
}

// Derivations returns the derivations registered for formName.
func (p *Parser) Derivations(formName string) []Derivation {
	return p.derivations[formName]
}

// SubFormsUsed lists every SubForm built so far, in creation order.
func (p *Parser) SubFormsUsed() []Node {
	return p.subForms
}

// ParseForm parses form and wraps the result in a root Conjunction.
func (p *Parser) ParseForm(form *Form) (Node, error) {
	items, err := p.Parse(form, "")
	if err != nil {
		return nil, err
	}
	root, err := p.reg.Conjunction(items)
	if err != nil {
		return nil, err
	}
	if p.dumpTree {
		p.log.WithField("tree", "\n"+Tree(root)).Debug("parsed form")
	}
	return root, nil
}

// Parse converts one mapping into nodes: derived nodes first, then the
// remaining keys in insertion order.
func (p *Parser) Parse(form *Form, formName string) ([]Node, error) {
	if form == nil {
		return nil, nil
	}

	consumed := make(KeySet)
	nodes, err := p.derive(form, formName, consumed)
	if err != nil {
		return nil, err
	}

	for _, key := range form.keys {
		if consumed.Has(key) {
			continue
		}
		value := form.values[key]
		if IsEmpty(value) {
			continue
		}

		switch v := value.(type) {
		case *Form:
			node, err := p.parseNested(key, v.Len() > 0, func(name string) ([]Node, error) {
				return p.Parse(v, name)
			}, false)
			if err != nil {
				return nil, err
			}
			if node != nil {
				nodes = append(nodes, node)
			}
		case FormList:
			node, err := p.parseNested(key, len(v) > 0, func(name string) ([]Node, error) {
				return p.ParseList(v, name)
			}, true)
			if err != nil {
				return nil, err
			}
			if node != nil {
				nodes = append(nodes, node)
			}
		default:
			if !isScalar(value) {
				p.log.WithFields(logrus.Fields{"form": formName, "field": key, "type": fmt.Sprintf("%T", value)}).
					Warn("ignoring field with unsupported value type")
				continue
			}
			p.log.WithFields(logrus.Fields{"form": formName, "field": key}).Debug("parsing field")
			node, err := p.hooks.ParseValue(formName, key, value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			if node != nil {
				nodes = append(nodes, node)
			}
		}
	}
	return nodes, nil
}

// ParseList parses every entry under formName and wraps each entry's nodes
// in its own connective.
func (p *Parser) ParseList(list FormList, formName string) ([]Node, error) {
	var nodes []Node
	for _, entry := range list {
		items, err := p.Parse(entry, formName)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			continue
		}
		node, err := p.hooks.MakeConnective("", items, false)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (p *Parser) parseNested(key string, nonEmpty bool, parse func(string) ([]Node, error), repeated bool) (Node, error) {
	if !nonEmpty {
		return nil, nil
	}
	name := p.hooks.ParseFormName(key)
	items, err := parse(name)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	content, err := p.hooks.MakeConnective(name, items, repeated)
	if err != nil {
		return nil, err
	}
	sub, err := p.reg.SubForm(key, content)
	if err != nil {
		return nil, err
	}
	p.subForms = append(p.subForms, sub)
	return sub, nil
}

func (p *Parser) derive(form *Form, formName string, consumed KeySet) ([]Node, error) {
	var nodes []Node
	for _, d := range p.derivations[formName] {
		node, err := d.Derive(form, consumed, p.reg)
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}
