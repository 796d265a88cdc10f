package compiler

import (
	"context"
	"testing"
)

func TestSmoke(t *testing.T) {
	data := []byte(`[{"t":"funcdef","specs":[{"t":"type","name":"int"}],"decl":{"t":"func","inner":{"t":"ident","name":"main"},"params":[{"specs":[{"t":"type","name":"void"}]}]},"body":{"t":"compound","items":[{"t":"return","x":{"t":"int","x":0}}]}}]`)

	ctx := context.Background()

	out, err := Gen(ctx, data)
	if err != nil {
		t.Errorf("gen: %v", err)
	}

	t.Logf("result:\n%s", out)
}
