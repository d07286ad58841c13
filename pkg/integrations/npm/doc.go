// Package npm provides a registry.Source backed by the npm registry.
//
// Single-version documents are fetched from {base}/{name}/{version}, so a
// lookup costs one small request instead of a full packument. The registry
// resolves dist-tags such as "latest" and many range expressions itself.
//
// Dependency collections are decoded in document order: the order packages
// appear in package.json is the order children appear in a resolved tree.
//
//	src := npm.NewClient(npm.WithBaseURL("https://registry.npmjs.org"))
//	meta, err := src.Lookup(ctx, "@babel/core", "7.24.0")
package npm
