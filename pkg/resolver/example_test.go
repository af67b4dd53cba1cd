package resolver_test

import (
	"fmt"

	"github.com/blacktop/dexsig/pkg/dex"
	"github.com/blacktop/dexsig/pkg/resolver"
	"github.com/blacktop/dexsig/pkg/signature"
)

func ExampleResolver_Resolve() {
	class := dex.NewClass("Lcom/example/Player;", dex.AccPublic, "Ljava/lang/Object;",
		dex.NewMethod("Lcom/example/Player;", "a", "Z", dex.AccPublic, nil,
			dex.NewCode(
				dex.NewInsn(dex.OpConst4),
				dex.NewInsn(dex.OpMove),
				dex.NewInsn(dex.OpReturn),
			)),
	)

	sig := &signature.MethodSignature{
		Name:    "isPlaying",
		Opcodes: signature.Pattern{signature.Op(dex.OpConst4), signature.Any(), signature.Op(dex.OpReturn)},
	}

	r, err := resolver.New(nil, &resolver.Options{Workers: 1})
	if err != nil {
		panic(err)
	}
	results := r.Resolve([]*signature.MethodSignature{sig}, []dex.ClassDef{class})
	if res, ok := results.Get(sig); ok {
		fmt.Println(res)
		fmt.Println("exact:", res.Scan.Exact())
	}
	// Output:
	// isPlaying -> Lcom/example/Player;->a()Z [0:2]
	// exact: true
}

func ExampleScanPattern() {
	ops := []dex.Opcode{dex.OpConst4, dex.OpAddInt, dex.OpSubInt, dex.OpReturn}
	pattern := signature.Pattern{signature.Op(dex.OpConst4), signature.Any(), signature.Op(dex.OpReturn)}

	_, ok := resolver.ScanPattern(ops, pattern, 0)
	fmt.Println("tolerance 0:", ok)

	res, ok := resolver.ScanPattern(ops, pattern, 1)
	fmt.Println("tolerance 1:", ok, res.StartIndex, res.EndIndex)
	for _, w := range res.Warnings {
		fmt.Println(w)
	}
	// Output:
	// tolerance 0: false
	// tolerance 1: true 0 2
	// insn 2: found sub-int, pattern[2] wants return
}
