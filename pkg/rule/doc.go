// Package rule defines the rule model: named bindings of a path query over a
// document to a check, loaded from a schema-validated JSON or YAML rules
// document and compiled once at load time.
package rule
