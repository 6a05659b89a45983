package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sqlhint/internal/hint"
)

// CompilePlan parses a CUE value into a PlanSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the plan struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`plan: Simple: { select: { from: [...] } }`)
//	spec, err := CompilePlan(v.LookupPath(cue.ParsePath("plan.Simple")))
//
// Hint parameters may be written as bare scalars (5, "DEFAULT") or as
// structs naming a table id ({table: "Pr"}) or a select ref ({block: "qb"}).
func CompilePlan(v cue.Value) (*PlanSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := checkFields(v, "plan", "name", "order", "kinds", "select", "set_op"); err != nil {
		return nil, err
	}

	spec := &PlanSpec{Name: labelOf(v)}
	var err error
	if name, ok, err := optString(v, "name"); err != nil {
		return nil, err
	} else if ok {
		spec.Name = name
	}
	if spec.Order, _, err = optString(v, "order"); err != nil {
		return nil, err
	}

	kindsVal := v.LookupPath(cue.ParsePath("kinds"))
	if kindsVal.Exists() {
		spec.Kinds, err = parseKinds(kindsVal)
		if err != nil {
			return nil, err
		}
	}

	selVal := v.LookupPath(cue.ParsePath("select"))
	opVal := v.LookupPath(cue.ParsePath("set_op"))
	switch {
	case selVal.Exists() && opVal.Exists():
		return nil, &CompileError{Field: "plan", Message: "plan has both a select and a set_op", Pos: v.Pos()}
	case selVal.Exists():
		spec.Select, err = parseSelect(selVal)
	case opVal.Exists():
		spec.SetOp, err = parseSetOp(opVal)
	default:
		return nil, &CompileError{Field: "plan", Message: "select or set_op is required", Pos: v.Pos()}
	}
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// CompileVocabulary parses a CUE vocabulary extension:
//
//	vocabulary: Extra: {
//		kinds: [{kind: "NO_GATHER_OPTIMIZER_STATISTICS", category: "query"}]
//	}
//
// The result extends the built-in Oracle vocabulary unless base is "none".
func CompileVocabulary(v cue.Value) (*hint.Vocabulary, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := checkFields(v, "vocabulary", "base", "kinds"); err != nil {
		return nil, err
	}

	name := labelOf(v)
	base, _, err := optString(v, "base")
	if err != nil {
		return nil, err
	}

	var vocab *hint.Vocabulary
	switch base {
	case "", "oracle":
		vocab = hint.Oracle().Clone(name)
	case "none":
		vocab = hint.NewVocabulary(name)
	default:
		return nil, &CompileError{Field: "base", Message: fmt.Sprintf("unknown base vocabulary %q", base), Pos: v.Pos()}
	}

	kindsVal := v.LookupPath(cue.ParsePath("kinds"))
	if !kindsVal.Exists() {
		return nil, &CompileError{Field: "kinds", Message: "kinds is required", Pos: v.Pos()}
	}
	kinds, err := parseKinds(kindsVal)
	if err != nil {
		return nil, err
	}
	for _, k := range kinds {
		cat, err := hint.ParseCategory(k.Category)
		if err != nil {
			return nil, &CompileError{Field: "category", Message: err.Error(), Pos: kindsVal.Pos()}
		}
		if err := vocab.Define(hint.KindSpec{Kind: hint.Kind(k.Kind), Category: cat, Separator: k.Separator}); err != nil {
			return nil, &CompileError{Field: "kind", Message: err.Error(), Pos: kindsVal.Pos()}
		}
	}
	return vocab, nil
}

func labelOf(v cue.Value) string {
	labels := v.Path().Selectors()
	if len(labels) == 0 {
		return ""
	}
	return labels[len(labels)-1].String()
}

// checkFields rejects fields outside allowed, so a misspelt key does not
// silently drop part of a plan.
func checkFields(v cue.Value, what string, allowed ...string) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if !slices.Contains(allowed, iter.Label()) {
			return &CompileError{
				Field:   iter.Label(),
				Message: fmt.Sprintf("unknown %s field", what),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func optString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseKinds(v cue.Value) ([]KindSpec, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var kinds []KindSpec
	for iter.Next() {
		kv := iter.Value()
		if err := checkFields(kv, "kind", "kind", "category", "separator"); err != nil {
			return nil, err
		}
		var k KindSpec
		var ok bool
		if k.Kind, ok, err = optString(kv, "kind"); err != nil {
			return nil, err
		} else if !ok {
			return nil, &CompileError{Field: "kind", Message: "kind is required", Pos: kv.Pos()}
		}
		if k.Category, ok, err = optString(kv, "category"); err != nil {
			return nil, err
		} else if !ok {
			return nil, &CompileError{Field: "category", Message: "category is required", Pos: kv.Pos()}
		}
		if k.Separator, _, err = optString(kv, "separator"); err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func parseSelect(v cue.Value) (*SelectSpec, error) {
	if err := checkFields(v, "select", "name", "ref", "clone_of", "disposition", "hints", "from"); err != nil {
		return nil, err
	}

	s := &SelectSpec{}
	var err error
	if s.Name, _, err = optString(v, "name"); err != nil {
		return nil, err
	}
	if s.Ref, _, err = optString(v, "ref"); err != nil {
		return nil, err
	}
	if s.CloneOf, _, err = optString(v, "clone_of"); err != nil {
		return nil, err
	}
	if s.Disposition, _, err = optString(v, "disposition"); err != nil {
		return nil, err
	}
	if s.Hints, err = parseHints(v); err != nil {
		return nil, err
	}

	fromVal := v.LookupPath(cue.ParsePath("from"))
	if !fromVal.Exists() {
		return s, nil
	}
	iter, err := fromVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		src, err := parseSource(iter.Value())
		if err != nil {
			return nil, err
		}
		s.From = append(s.From, *src)
	}
	return s, nil
}

func parseSource(v cue.Value) (*SourceSpec, error) {
	if err := checkFields(v, "FROM item", "table", "alias", "pinned", "id", "hints", "select", "set_op"); err != nil {
		return nil, err
	}

	src := &SourceSpec{}
	var err error
	if src.Table, _, err = optString(v, "table"); err != nil {
		return nil, err
	}
	if src.Alias, _, err = optString(v, "alias"); err != nil {
		return nil, err
	}
	if src.Pinned, err = optBool(v, "pinned"); err != nil {
		return nil, err
	}
	if src.ID, _, err = optString(v, "id"); err != nil {
		return nil, err
	}
	if src.Hints, err = parseHints(v); err != nil {
		return nil, err
	}

	if sel := v.LookupPath(cue.ParsePath("select")); sel.Exists() {
		if src.Select, err = parseSelect(sel); err != nil {
			return nil, err
		}
	}
	if op := v.LookupPath(cue.ParsePath("set_op")); op.Exists() {
		if src.SetOp, err = parseSetOp(op); err != nil {
			return nil, err
		}
	}
	return src, nil
}

func parseSetOp(v cue.Value) (*SetOpSpec, error) {
	if err := checkFields(v, "set_op", "kind", "branches"); err != nil {
		return nil, err
	}

	s := &SetOpSpec{}
	var err error
	if s.Kind, _, err = optString(v, "kind"); err != nil {
		return nil, err
	}

	branchesVal := v.LookupPath(cue.ParsePath("branches"))
	if !branchesVal.Exists() {
		return nil, &CompileError{Field: "branches", Message: "set operation branches are required", Pos: v.Pos()}
	}
	iter, err := branchesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		b, err := parseSelect(iter.Value())
		if err != nil {
			return nil, err
		}
		s.Branches = append(s.Branches, *b)
	}
	return s, nil
}

func parseHints(v cue.Value) ([]HintSpec, error) {
	hintsVal := v.LookupPath(cue.ParsePath("hints"))
	if !hintsVal.Exists() {
		return nil, nil
	}
	iter, err := hintsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var hints []HintSpec
	for iter.Next() {
		hv := iter.Value()

		// A bare string is a parameterless hint: "FULL".
		if kind, err := hv.String(); err == nil {
			hints = append(hints, HintSpec{Kind: kind})
			continue
		}

		if err := checkFields(hv, "hint", "kind", "sep", "params", "indexes", "raw"); err != nil {
			return nil, err
		}
		var h HintSpec
		if h.Kind, _, err = optString(hv, "kind"); err != nil {
			return nil, err
		}
		if h.Sep, _, err = optString(hv, "sep"); err != nil {
			return nil, err
		}
		if h.Raw, _, err = optString(hv, "raw"); err != nil {
			return nil, err
		}
		if h.Indexes, err = optStrings(hv, "indexes"); err != nil {
			return nil, err
		}
		if h.Params, err = parseParams(hv); err != nil {
			return nil, err
		}
		hints = append(hints, h)
	}
	return hints, nil
}

func parseParams(v cue.Value) ([]ParamSpec, error) {
	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if !paramsVal.Exists() {
		return nil, nil
	}
	iter, err := paramsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var params []ParamSpec
	for iter.Next() {
		p, err := parseParam(iter.Value())
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// parseParam converts one parameter. Floats are forbidden: hint parameters
// render as integer or string tokens only.
func parseParam(v cue.Value) (ParamSpec, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return ParamSpec{}, formatCUEError(err)
		}
		return ParamSpec{Value: s}, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return ParamSpec{}, formatCUEError(err)
		}
		return ParamSpec{Value: n}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return ParamSpec{}, formatCUEError(err)
		}
		return ParamSpec{Value: b}, nil
	case cue.StructKind:
		if err := checkFields(v, "param", "value", "table", "block"); err != nil {
			return ParamSpec{}, err
		}
		var p ParamSpec
		var err error
		if p.Table, _, err = optString(v, "table"); err != nil {
			return p, err
		}
		if p.Block, _, err = optString(v, "block"); err != nil {
			return p, err
		}
		if val := v.LookupPath(cue.ParsePath("value")); val.Exists() {
			inner, err := parseParam(val)
			if err != nil {
				return p, err
			}
			p.Value = inner.Value
		}
		return p, nil
	case cue.FloatKind, cue.NumberKind:
		return ParamSpec{}, &CompileError{
			Field:   "params",
			Message: "float parameters are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return ParamSpec{}, &CompileError{
			Field:   "params",
			Message: fmt.Sprintf("unsupported parameter kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
