// Package expr provides CEL (Common Expression Language) functionality
// for filtering rules by their metadata and target documents.
//
// It creates CEL environments with custom functions for:
//   - File path operations (pathBase, pathDir, pathExt)
//   - Document value extraction (jsonPath)
//
// The variables in scope are declared by the caller; rule matching exposes:
//   - `name` (string): The rule name
//   - `file` (string): The rule's document path
//   - `path` (string): The rule's path query
//   - `check` (string): The rule's check type
package expr
