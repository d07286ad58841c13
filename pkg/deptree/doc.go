// Package deptree reconstructs dependency trees from registry metadata.
//
// A [Builder] expands each root package into a tree of [Node] values by
// asking a [Fetcher] for the metadata of every package it meets:
//
//	client := registry.NewClient(npm.NewClient(), nil, logger)
//	b := deptree.NewBuilder(client, deptree.Options{Concurrency: 8})
//	trees := b.Build(ctx, []deptree.Request{{Name: "express", Version: "4.18.2"}})
//
// # Shape of a tree
//
// Recursion stops below [DefaultMaxDepth] (configurable). A package that
// already appears on the path from the root is emitted once more as a
// placeholder with IsCircular set and no children; the same package on a
// sibling branch is expanded normally, so diamonds are duplicated rather
// than shared.
//
// Children are ordered production dependencies first, then the root's
// development and peer dependencies, each group in the registry document's
// key order. Development and peer dependencies are only expanded for roots.
//
// Packages the registry cannot serve are pruned from their parent's
// children. [Builder.Build] never fails.
package deptree
