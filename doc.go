// Package mymcp implements an MCP (Model Context Protocol) server for
// MySQL and MariaDB databases, speaking line-delimited JSON-RPC 2.0 over
// stdio. It exposes schema lookup, parameterized query execution, and
// structured insert/update/delete tools behind a keyword-based safety
// policy and a bounded connection pool.
package mymcp
