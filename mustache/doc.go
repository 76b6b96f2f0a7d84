// Package mustache compiles and renders logic-less templates.
//
// A template is compiled once into an immutable node tree and rendered any
// number of times, concurrently if needed, against application data:
//
//	t, err := mustache.Compile(ctx, "Hello, {{name}}!")
//	if err != nil {
//		return err
//	}
//
//	out, err := t.RenderString(ctx, map[string]any{"name": "world"})
//
// # Syntax
//
//	{{name}}              escaped variable
//	{{{name}}} {{&name}}  unescaped variable
//	{{#name}}…{{/name}}   section
//	{{^name}}…{{/name}}   inverted section
//	{{!comment}}          comment
//	{{>name}}             partial
//	{{=<% %>=}}           delimiter change
//	{{%PRAGMA}}           enable optional syntax
//
// Names are "." for the current value, a simple identifier, or a dotted
// path such as "a.b.c". Inside a list section "-index", "-first", and
// "-last" describe the position of the current element.
//
// # Pragmas
//
// BLOCKS enables template inheritance. {{$name}}…{{/name}} defines a block
// with default content, and {{<parent}}…{{/parent}} renders the partial
// "parent" with the blocks defined inside the tag taking precedence over
// those in the parent.
//
// FILTERS enables filter chains: {{name | upper | trim}} passes the value of
// name through the functions bound to "upper" and then "trim".
//
// # Data
//
// Each data value passed to [Template.Render] becomes a [Scope]. Maps,
// structs, and [TreeNode] values are adapted by [DefaultScopeFactory].
// Values bound to a [Lambda] receive the unexpanded text of their section.
//
// Partials and parents are resolved at render time through a
// [PartialRepository]. Their expansion is bounded by [WithMaxDepth], so
// templates that include each other fail with [ErrMaxDepthExceeded] instead
// of recursing forever.
package mustache
