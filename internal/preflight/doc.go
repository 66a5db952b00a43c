// Package preflight provides readiness checks for the filesystem paths
// downsort depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup. A watch directory that fails is
//     fatal; destination problems are logged as warnings because moves into
//     other categories still work.
//   - The CLI "downsort check" command prints every result.
package preflight
