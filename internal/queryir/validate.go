package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult lists structural problems found in a tree.
//
// A tree with problems cannot be rendered: the resolver refuses it rather
// than guessing where hints belong.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each inconsistency, in encounter order.
	Problems []string
}

// Validate checks the structural rules the resolver relies on:
//  1. The root exists and is a Select or SetOp
//  2. Parent/child links agree in both directions
//  3. Tables sit directly in a Select and name a source table
//  4. Set operations have at least two branches, all of them Selects
//  5. Branches of a root set operation are never Flattened (each one must
//     keep its SELECT, there is nothing to fold it into)
//  6. No alias contains */, which would end the hint comment
//
// Validate is a pure function with no side effects.
func Validate(t *Tree) ValidationResult {
	v := &validator{tree: t, problems: []string{}}
	v.validate()

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	tree     *Tree
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validate() {
	root := v.tree.Node(v.tree.Root())
	if root == nil {
		v.addProblem("tree has no root")
		return
	}
	if root.Kind == KindTable {
		v.addProblem("root node %d is a table", root.ID)
		return
	}
	if root.Parent.Valid() {
		v.addProblem("root node %d has parent %d", root.ID, root.Parent)
	}

	v.tree.Walk(func(n *Node) bool {
		v.validateLinks(n)
		if strings.Contains(n.Alias, "*/") {
			v.addProblem("node %d has alias %q containing */", n.ID, n.Alias)
		}
		switch n.Kind {
		case KindTable:
			v.validateTable(n)
		case KindSelect:
			v.validateSelect(n)
		case KindSetOp:
			v.validateSetOp(n)
		}
		return true
	})
}

func (v *validator) validateLinks(n *Node) {
	for _, c := range n.Children {
		child := v.tree.Node(c)
		if child == nil {
			v.addProblem("node %d lists missing child %d", n.ID, c)
			continue
		}
		if child.Parent != n.ID {
			v.addProblem("node %d lists child %d whose parent is %d", n.ID, c, child.Parent)
		}
	}
}

func (v *validator) validateTable(n *Node) {
	if n.Table == "" {
		v.addProblem("table node %d has no source table", n.ID)
	}
	if len(n.Children) > 0 {
		v.addProblem("table node %d has children", n.ID)
	}
	if p := v.tree.Node(n.Parent); p == nil || p.Kind != KindSelect {
		v.addProblem("table node %d is not owned by a select", n.ID)
	}
}

func (v *validator) validateSelect(n *Node) {
	if v.tree.IsRootBranch(n.ID) && n.Disposition == Flattened {
		v.addProblem("branch %d of the root set operation is flattened", n.ID)
	}
	if n.ID == v.tree.Root() && n.Disposition == Flattened {
		v.addProblem("root select %d is flattened", n.ID)
	}
}

func (v *validator) validateSetOp(n *Node) {
	live := 0
	for _, c := range n.Children {
		child := v.tree.Node(c)
		if child == nil || child.Eliminated {
			continue
		}
		live++
		if child.Kind != KindSelect {
			v.addProblem("set operation %d has a %s branch %d", n.ID, child.Kind, c)
		}
	}
	if live < 2 {
		v.addProblem("set operation %d has %d branches, need at least 2", n.ID, live)
	}
}
