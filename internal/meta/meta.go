// Package meta holds build metadata shared between the library and the CLI.
package meta

// Version is the released version of gomymcp.
const Version = "1.0.0"
