package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/sqlhint/internal/hint"
	"github.com/roach88/sqlhint/internal/ir"
	"github.com/roach88/sqlhint/internal/queryir"
	"github.com/roach88/sqlhint/internal/querysql"
)

// Validation error codes (E100-E199)
const (
	ErrPlanRoot         = "E101" // plan needs exactly one of select and set_op
	ErrSourceShape      = "E102" // FROM item needs exactly one of table, select, set_op
	ErrSetOpBranches    = "E103" // set operation needs two or more branches
	ErrInvalidDisp      = "E104" // unknown disposition
	ErrDuplicateName    = "E105" // duplicate ref, block name or table id
	ErrInvalidParam     = "E106" // param shape or value
	ErrUndefinedRef     = "E107" // block param or clone_of names no ref
	ErrUndefinedTableID = "E108" // table param names no id
	ErrInvalidSetOpKind = "E109" // unknown set operator
	ErrInvalidHint      = "E110" // hint shape
	ErrInvalidOrder     = "E111" // unknown ordering
	ErrInvalidKindSpec  = "E112" // vocabulary extension
	ErrMisplacedCloneOf = "E113" // clone_of outside a set operation branch
)

// ValidationError represents a plan validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a plan's shape and cross references before it is built.
// Returns all errors found (does not fail-fast).
//
// Validation is static: it cannot tell whether a name will be addressable
// after the optimizer's dispositions are applied. Those failures surface
// from the render pass.
func Validate(spec *PlanSpec) []ValidationError {
	v := &planValidator{
		refs:  make(map[string]bool),
		names: make(map[string]bool),
		ids:   make(map[string]bool),
	}
	if spec == nil {
		v.add("plan", ErrPlanRoot, "plan is nil")
		return v.errs
	}

	if _, err := querysql.ParseOrdering(spec.Order); err != nil {
		v.add("order", ErrInvalidOrder, err.Error())
	}
	for i, k := range spec.Kinds {
		v.validateKind(fmt.Sprintf("kinds[%d]", i), k)
	}

	switch {
	case spec.Select == nil && spec.SetOp == nil:
		v.add("plan", ErrPlanRoot, "plan needs a select or a set_op")
	case spec.Select != nil && spec.SetOp != nil:
		v.add("plan", ErrPlanRoot, "plan has both a select and a set_op")
	case spec.Select != nil:
		v.collectSelect("select", spec.Select)
	default:
		v.collectSetOp("set_op", spec.SetOp)
	}

	// References are checked once every ref and id is known: a hint may
	// point at a block declared after it.
	for _, p := range v.params {
		switch {
		case p.spec.Table != "" && !v.ids[p.spec.Table]:
			v.add(p.path, ErrUndefinedTableID, fmt.Sprintf("no table has id %q", p.spec.Table))
		case p.spec.Block != "" && !v.refs[p.spec.Block]:
			v.add(p.path, ErrUndefinedRef, fmt.Sprintf("no select has ref %q", p.spec.Block))
		}
	}
	for _, c := range v.clones {
		if !v.refs[c.ref] {
			v.add(c.path, ErrUndefinedRef, fmt.Sprintf("no select has ref %q", c.ref))
		}
	}

	return v.errs
}

type paramRef struct {
	path string
	spec ParamSpec
}

type cloneRef struct {
	path string
	ref  string
}

type planValidator struct {
	errs   []ValidationError
	refs   map[string]bool
	names  map[string]bool
	ids    map[string]bool
	params []paramRef
	clones []cloneRef
}

func (v *planValidator) add(field, code, msg string) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: msg, Code: code})
}

func (v *planValidator) validateKind(path string, k KindSpec) {
	if strings.TrimSpace(k.Kind) == "" {
		v.add(path+".kind", ErrInvalidKindSpec, "kind is required")
	}
	if hint.Kind(k.Kind) == hint.QBName {
		v.add(path+".kind", ErrInvalidKindSpec, "QB_NAME is emitted by the renderer and cannot be redefined")
	}
	if _, err := hint.ParseCategory(k.Category); err != nil {
		v.add(path+".category", ErrInvalidKindSpec, err.Error())
	}
}

func (v *planValidator) collectSelect(path string, s *SelectSpec) {
	if s.CloneOf != "" {
		v.add(path+".clone_of", ErrMisplacedCloneOf, "only set operation branches can be clones")
	}
	v.collectBlock(path, s)
}

// collectBlock validates a select that is not a clone.
func (v *planValidator) collectBlock(path string, s *SelectSpec) {
	if s.Ref != "" {
		if v.refs[s.Ref] {
			v.add(path+".ref", ErrDuplicateName, fmt.Sprintf("duplicate ref %q", s.Ref))
		}
		v.refs[s.Ref] = true
	}
	if s.Name != "" {
		if v.names[s.Name] {
			v.add(path+".name", ErrDuplicateName, fmt.Sprintf("duplicate query block name %q", s.Name))
		}
		v.names[s.Name] = true
	}
	if _, err := queryir.ParseDisposition(s.Disposition); err != nil {
		v.add(path+".disposition", ErrInvalidDisp, err.Error())
	}

	for i, h := range s.Hints {
		hp := fmt.Sprintf("%s.hints[%d]", path, i)
		switch {
		case h.Raw != "" && (h.Kind != "" || len(h.Params) > 0):
			v.add(hp, ErrInvalidHint, "raw hint cannot have a kind or params")
		case h.Raw == "" && strings.TrimSpace(h.Kind) == "":
			v.add(hp+".kind", ErrInvalidHint, "kind is required")
		case len(h.Indexes) > 0:
			v.add(hp+".indexes", ErrInvalidHint, "index hints belong on tables")
		}
		v.collectParams(hp, h.Params)
	}

	for i := range s.From {
		v.collectSource(fmt.Sprintf("%s.from[%d]", path, i), &s.From[i])
	}
}

func (v *planValidator) collectSource(path string, src *SourceSpec) {
	set := 0
	for _, ok := range []bool{src.Table != "", src.Select != nil, src.SetOp != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		v.add(path, ErrSourceShape, "FROM item needs exactly one of table, select and set_op")
		return
	}
	if src.Pinned && src.Alias == "" {
		v.add(path+".pinned", ErrSourceShape, "a pinned FROM item needs an alias")
	}

	switch {
	case src.Table != "":
		if src.ID != "" {
			if v.ids[src.ID] {
				v.add(path+".id", ErrDuplicateName, fmt.Sprintf("duplicate table id %q", src.ID))
			}
			v.ids[src.ID] = true
		}
		for i, h := range src.Hints {
			hp := fmt.Sprintf("%s.hints[%d]", path, i)
			switch {
			case h.Raw != "":
				v.add(hp+".raw", ErrInvalidHint, "raw hints belong on selects")
			case strings.TrimSpace(h.Kind) == "":
				v.add(hp+".kind", ErrInvalidHint, "kind is required")
			case len(h.Indexes) > 0 && len(h.Params) > 0:
				v.add(hp, ErrInvalidHint, "index hints take indexes, not params")
			}
			v.collectParams(hp, h.Params)
		}
	case src.Select != nil:
		if src.ID != "" || len(src.Hints) > 0 {
			v.add(path, ErrSourceShape, "id and hints apply to tables; put block hints on the select")
		}
		v.collectSelect(path+".select", src.Select)
	default:
		if src.ID != "" || len(src.Hints) > 0 {
			v.add(path, ErrSourceShape, "id and hints apply to tables")
		}
		v.collectSetOp(path+".set_op", src.SetOp)
	}
}

func (v *planValidator) collectSetOp(path string, s *SetOpSpec) {
	if _, err := queryir.ParseSetOpKind(s.Kind); err != nil {
		v.add(path+".kind", ErrInvalidSetOpKind, err.Error())
	}
	if len(s.Branches) < 2 {
		v.add(path+".branches", ErrSetOpBranches,
			fmt.Sprintf("set operation has %d branches, need at least 2", len(s.Branches)))
	}
	for i := range s.Branches {
		b := &s.Branches[i]
		bp := fmt.Sprintf("%s.branches[%d]", path, i)
		if b.CloneOf == "" {
			v.collectBlock(bp, b)
			continue
		}
		if b.Name != "" || b.Ref != "" || len(b.Hints) > 0 || len(b.From) > 0 || b.Disposition != "" {
			v.add(bp, ErrMisplacedCloneOf, "a clone takes everything from its source")
		}
		v.clones = append(v.clones, cloneRef{path: bp + ".clone_of", ref: b.CloneOf})
	}
}

func (v *planValidator) collectParams(path string, params []ParamSpec) {
	for i, p := range params {
		pp := fmt.Sprintf("%s.params[%d]", path, i)
		set := 0
		for _, ok := range []bool{p.Value != nil, p.Table != "", p.Block != ""} {
			if ok {
				set++
			}
		}
		if set != 1 {
			v.add(pp, ErrInvalidParam, "param needs exactly one of value, table and block")
			continue
		}
		if p.Value != nil {
			if _, err := ir.ScalarFromAny(p.Value); err != nil {
				v.add(pp+".value", ErrInvalidParam, err.Error())
			}
			continue
		}
		v.params = append(v.params, paramRef{path: pp, spec: p})
	}
}
