// Copyright 2020, Square, Inc.

/*
Package jsl provides the in-memory model of a job definition: the job, its
steps, flows, splits and decisions, their transitions, and the artifacts,
properties and listeners they reference.

A definition goes through three states. Parsed (or built) definitions are
unresolved: inheritable elements may still name a Parent, and string fields
may still hold #{...} expressions. The inherit package resolves parents in
place once, which produces a template. Templates are shared and must not be
modified; every consumer takes a Clone before resolving properties.

Most scalar fields are strings, even numeric ones like Chunk.ItemCount,
because they may hold an expression until properties are resolved. An empty
string means "not set".
*/
package jsl
