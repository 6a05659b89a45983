package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidTree(t *testing.T) {
	tree, _, _, _, _ := parentChildTree(t)

	result := Validate(tree)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Problems)
}

func TestValidate_SetOpNeedsTwoBranches(t *testing.T) {
	tree, root := NewSetOpTree(Union)
	_, err := tree.AddBranch(root)
	require.NoError(t, err)

	result := Validate(tree)

	assert.False(t, result.Valid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "has 1 branches")
}

func TestValidate_FlattenedRootBranch(t *testing.T) {
	tree, root := NewSetOpTree(Union)
	b1, err := tree.AddBranch(root)
	require.NoError(t, err)
	_, err = tree.AddBranch(root)
	require.NoError(t, err)
	require.NoError(t, tree.SetDisposition(b1, Flattened))

	result := Validate(tree)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Problems, "branch 2 of the root set operation is flattened")
}

func TestValidate_FlattenedRoot(t *testing.T) {
	tree, root := NewTree()
	require.NoError(t, tree.SetDisposition(root, Flattened))

	result := Validate(tree)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Problems, "root select 1 is flattened")
}

func TestValidate_EliminatedBranchCounts(t *testing.T) {
	tree, root := NewSetOpTree(UnionAll)
	_, err := tree.AddBranch(root)
	require.NoError(t, err)
	b2, err := tree.AddBranch(root)
	require.NoError(t, err)
	require.NoError(t, tree.Eliminate(b2))

	result := Validate(tree)

	assert.False(t, result.Valid, "eliminating a branch leaves a one-branch set operation")
}

func TestValidate_BrokenLinks(t *testing.T) {
	tree, root, _, parent, _ := parentChildTree(t)
	// Corrupt the arena directly: the table claims a different owner.
	tree.nodes[parent.index()].Parent = root

	result := Validate(tree)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Problems[0], "lists child")
}

func TestValidate_AliasEndsComment(t *testing.T) {
	tree, _, _, parent, _ := parentChildTree(t)
	tree.nodes[parent.index()].Alias = "p */ DELETE FROM x --"

	result := Validate(tree)

	assert.False(t, result.Valid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "containing */")
}
