// Package dogging wraps functions with declarative per-phase logging.
//
// A Dog is a reusable logging configuration: up to three phase templates
// (enter, exit, error), the sink records go to, and the providers that
// compute derived values. Wrapping a function binds the configuration to
// that function's signature, validating every template reference against
// it, so misspelled parameters, metadata used in the wrong phase, unknown
// computed names and cyclic computed definitions all fail at decoration
// time. Call time never validates; its only failure mode is an attribute
// path that does not resolve on the live value, which degrades to a
// placeholder in the rendered message.
//
// Template references come in three namespaces:
//
//	{name}       a parameter of the wrapped function, by declared name
//	{@meta}      call metadata: @pathname @line @logger @func @time @ret
//	             @err @traceback, each limited to the phases where its
//	             value exists
//	{>computed}  a value computed by a registered provider
//
// References may drill into values with attribute and index accessors and
// carry a conversion and format spec, e.g. {user.Name!q:10}.
//
// Everything a record needs is evaluated lazily and at most once per
// phase: arguments are bound only if some reference needs them, a provider
// is instantiated on the first computed reference it owns, and each
// computed method runs once per phase no matter how many references share
// it.
//
//	dog := dogging.MustNew(
//		dogging.Enter("transfer {amount} from {src}"),
//		dogging.Exit("transfer done, id {@ret}"),
//		dogging.Error("transfer failed: {@err}", dogging.AtLevel(sink.LevelError)),
//	)
//	transfer, err := dogging.Wrap2(dog, Transfer, "src", "amount")
//	if err != nil {
//		// a template referenced something Transfer does not have
//	}
//	id, err := transfer("acct-1", 250)
//
// Exactly one of exit/error fires per call. Errors and panics both route
// through the error phase; panics are re-raised after logging, and errors
// propagate unchanged unless a fallback return was configured.
package dogging
