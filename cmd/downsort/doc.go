// Package main hosts the downsort CLI entrypoint and command graph.
//
// Running the binary with no subcommand starts the watch loop in the
// foreground. The remaining commands inspect configuration, preview how names
// would be classified, print the move history, and run the same preflight
// checks the daemon performs at startup.
//
// Keep this package lean: behaviour lives in the internal packages and is only
// surfaced here.
package main
