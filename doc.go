// Package formstate provides:
//
//   - A path-addressable form state tree with structural sharing (values, initial values, touched, dirty)
//   - Incremental dirty tracking that only visits the changed subtree
//   - Per-field and whole-form validation with routed, source-classified errors
//   - Debounced auto-submit with single-flight submissions and cancellation on Close
//   - Memoized field, array and item accessors for UI bindings
//
// Design policy:
//   - Keep only public APIs in the root package; put state transitions and schedulers under internal/.
//   - Place validator builders under dsl/, whole-form rules under rules/, tag validators under validate/,
//     declarative definitions under formdef/, and the CLI under cmd/formstate.
//   - Validation failures are data (*Issue, *ValidationError); programmer errors panic.
//
// Typical usage:
//
//	schema := formstate.NewSchema(
//	    formstate.Field("email", dsl.String().Email()),
//	    formstate.ArrayField("items", item),
//	).Refine(rules.AtLeastOne("items", "add at least one item"))
//
//	form := formstate.New(schema,
//	    formstate.WithMode(formstate.OnChange(100*time.Millisecond, true)),
//	    formstate.WithOnSubmit(save),
//	)
//	defer form.Close()
//	_ = form.Initialize(nil)
//
//	_ = form.Field("email").OnChange("ann@example.com")
//	_ = form.Array("items").Append()
//	_, err := form.Submit(ctx)
package formstate
