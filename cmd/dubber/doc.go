// Command dubber drives the video dubbing pipeline from the command line:
// run a dub, inspect run history, clean up workspaces, and manage
// configuration.
package main
