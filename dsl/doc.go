// Package dsl provides builders for formstate validators.
//
// Overview
//   - Primitives: String()/Number()/Bool()/Enum() with chained checks (Min/Max/Pattern/Email/...).
//   - Containers: Object() builder with Field/Required/Optional/Refine then Build/MustBuild, and Array(elem).
//   - Wrappers: Refine/RefineAt/RefineContext, Transform, Optional, Lazy and Union.
//
// Every builder implements formstate.Validator. Objects and arrays also
// report themselves as containers and expose their children, so a form can
// resolve the validator for "items[0].name" and seed array items from
// element defaults.
//
// Error model
//   - Leaf issues carry a code from the formstate Code* constants and a
//     message from the i18n package unless a message is passed explicitly.
//   - Object and array members are wrapped in pointer issues keyed by member
//     name or index.
//   - Refine on a scalar yields a value refinement reported on the field.
//     Refine on a container, and object-level Refine, yield a predicate
//     refinement that a form routes to its refinement error slot.
//
// Example
//
//	item := g.Object().
//	    Field("name", g.String().NonEmpty()).Required().
//	    Field("qty", g.Number().Int().Min(1)).Required().
//	    MustBuild()
//
//	schema := formstate.NewSchema(
//	    formstate.Field("email", g.String().Email()),
//	    formstate.ArrayField("items", item),
//	)
package dsl
