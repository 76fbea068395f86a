// Package filesystem turns command line arguments into image blobs.
//
// Arguments may be:
//   - Files: read as given
//   - Directories: walked with fastwalk, recursively when asked
//   - Glob patterns: expanded with doublestar, so "**" crosses directories
//
// Paths keep argument order, each sorted within its argument, and a file
// named twice is read once. Content is sniffed with mimetype; files that are
// not images are reported as skipped rather than failing the whole load.
//
// Example Usage:
//
//	paths, err := filesystem.Expand(ctx, []string{"shots/", "**/*.png"}, filesystem.Options{Recursive: true})
//	images, skipped, err := filesystem.Load(ctx, paths)
package filesystem
