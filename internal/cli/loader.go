package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sqlhint/internal/compiler"
	"github.com/roach88/sqlhint/internal/hint"
)

// LoadMode controls how errors are handled during plan loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the plans and vocabularies of a directory.
type LoadResult struct {
	Plans        []compiler.PlanSpec
	Vocabularies []*hint.Vocabulary
	CUEValue     cue.Value
	FileCount    int
}

// Plan returns the plan with the given name.
func (r *LoadResult) Plan(name string) (*compiler.PlanSpec, bool) {
	for i := range r.Plans {
		if r.Plans[i].Name == name {
			return &r.Plans[i], true
		}
	}
	return nil, false
}

// PlanNames returns the names of all loaded plans, in load order.
func (r *LoadResult) PlanNames() []string {
	names := make([]string, len(r.Plans))
	for i, p := range r.Plans {
		names[i] = p.Name
	}
	return names
}

// LoadError represents an error that occurred during plan loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadPlans loads the CUE package in dir and compiles its plans and
// vocabulary extensions:
//
//	plan: Simple: select: from: [{table: "Parent", alias: "p", hints: ["FULL"]}]
//	vocabulary: Extra: kinds: [{kind: "NO_GATHER_OPTIMIZER_STATISTICS", category: "query"}]
//
// Every vocabulary extension applies to every plan in the directory. Plans
// keep CUE field order.
func LoadPlans(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("plans directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing plans directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}
	var errs []error
	stop := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeFailFast
	}

	// Vocabularies first: plans need them.
	if vocabVal := value.LookupPath(cue.ParsePath("vocabulary")); vocabVal.Exists() {
		iter, iterErr := vocabVal.Fields()
		if iterErr != nil && stop(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating vocabularies: %v", iterErr)}) {
			return result, errs
		}
		for iterErr == nil && iter.Next() {
			vocab, compileErr := compiler.CompileVocabulary(iter.Value())
			if compileErr != nil {
				if stop(convertCompileError(compileErr, "vocabulary."+iter.Label())) {
					return result, errs
				}
				continue
			}
			result.Vocabularies = append(result.Vocabularies, vocab)
		}
	}
	extensions := vocabularyKinds(result.Vocabularies)

	if planVal := value.LookupPath(cue.ParsePath("plan")); planVal.Exists() {
		iter, iterErr := planVal.Fields()
		if iterErr != nil && stop(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating plans: %v", iterErr)}) {
			return result, errs
		}
		for iterErr == nil && iter.Next() {
			spec, compileErr := compiler.CompilePlan(iter.Value())
			if compileErr != nil {
				if stop(convertCompileError(compileErr, "plan."+iter.Label())) {
					return result, errs
				}
				continue
			}
			spec.Kinds = append(slices.Clone(extensions), spec.Kinds...)
			result.Plans = append(result.Plans, *spec)
		}
	}

	if len(result.Plans) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no plans found"})
	}

	return result, errs
}

// vocabularyKinds returns the kinds the vocabularies add to or change in
// the built-in Oracle vocabulary, as plan kind specs.
func vocabularyKinds(vocabs []*hint.Vocabulary) []compiler.KindSpec {
	oracle := hint.Oracle()
	var kinds []compiler.KindSpec
	for _, v := range vocabs {
		for _, k := range v.Kinds() {
			if base, ok := oracle.Lookup(k.Kind); ok && base == k {
				continue
			}
			kinds = append(kinds, compiler.KindSpec{
				Kind:      string(k.Kind),
				Category:  k.Category.String(),
				Separator: k.Separator,
			})
		}
	}
	return kinds
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants shared by all commands. Plan validation codes
// (E1xx) come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoPlan      = "E008" // --plan names no loaded plan
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "plan", "select", "set_op":
		return compiler.ErrPlanRoot
	case "from":
		return compiler.ErrSourceShape
	case "branches":
		return compiler.ErrSetOpBranches
	case "hints":
		return compiler.ErrInvalidHint
	case "params":
		return compiler.ErrInvalidParam
	case "order":
		return compiler.ErrInvalidOrder
	case "kinds", "kind", "category", "base", "separator":
		return compiler.ErrInvalidKindSpec
	default:
		return ErrCodeGeneric
	}
}
