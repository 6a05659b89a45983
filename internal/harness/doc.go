// Package harness provides scenario testing for hint rendering.
//
// A scenario is a plan (query tree, dispositions, hints) plus assertions on
// the comments it must render, or on the error it must fail with.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: tableid_3
//	description: "What this scenario validates"
//	order: attachment
//	plan:
//	  select:
//	    hints:
//	      - kind: LEADING
//	        params: [{table: Pr}, {table: Ch}]
//	    from:
//	      - table: Parent
//	        alias: p
//	        id: Pr
//	      - table: Child
//	        alias: c
//	        id: Ch
//	assertions:
//	  - type: comment_equals
//	    block: sel_1
//	    comment: "/*+ LEADING(p c) */"
//	  - type: error_code
//	    code: UNADDRESSABLE_BLOCK
//
// # Assertion Types
//
//   - comment_equals: A level's comment is exactly the given text
//   - comment_contains: A level's comment contains the given text
//   - sql_equals: The skeleton SQL is exactly the given statement
//   - sql_contains: The skeleton SQL contains the given text
//   - block_count: Exactly N levels carry a comment
//   - error_code: The render failed with the given error code
//
// # Deterministic Testing
//
// Every scenario renders through the engine against a fresh in-memory
// render log, with render IDs from testutil.SequentialIDGenerator seeded by
// the scenario name. Identical scenarios therefore produce byte-identical
// snapshots for golden comparison.
package harness
