package dogging_test

import (
	"errors"
	"fmt"

	"github.com/reuvenpo/dogging"
	"github.com/reuvenpo/dogging/provider"
	"github.com/reuvenpo/dogging/sink"
)

func Example() {
	out := sink.Func(func(level sink.Level, message string, attrs map[string]any) {
		fmt.Printf("[%s] %s\n", level, message)
	})

	dog := dogging.MustNew(
		dogging.Enter("transferring {amount} from {src}"),
		dogging.Exit("transfer complete, ref {@ret}"),
		dogging.Error("transfer failed: {@err}", dogging.AtLevel(sink.LevelError)),
		dogging.WithSink(out),
	)

	transfer := func(src string, amount int) (string, error) {
		if amount > 100 {
			return "", errors.New("limit exceeded")
		}
		return "ref-001", nil
	}

	f, err := dog.Wrap(transfer, "src", "amount")
	if err != nil {
		panic(err)
	}

	f.Call("acct-1", 50)
	f.Call("acct-1", 500)

	// Output:
	// [info] transferring 50 from acct-1
	// [info] transfer complete, ref ref-001
	// [info] transferring 500 from acct-1
	// [error] transfer failed: limit exceeded
}

func ExampleDog_Wrap_providers() {
	out := sink.Func(func(level sink.Level, message string, attrs map[string]any) {
		fmt.Println(message)
	})

	// naming derives a display name from the wrapped call's argument.
	naming := provider.Funcs("naming", []string{"name"}, map[string]provider.Func{
		"short": func(args provider.Args) (any, error) {
			return args.String("name")[:3], nil
		},
	})
	shorten := dogging.MustNew(
		dogging.Enter("hello {>short}"),
		dogging.WithProviders(naming),
		dogging.WithSink(out),
	)

	greet := func(name string) (string, error) { return "hi " + name, nil }
	f, err := shorten.Wrap(greet, "name")
	if err != nil {
		panic(err)
	}
	f.Call("Katherine")

	// Output:
	// hello Kat
}
