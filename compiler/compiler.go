package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/scc/src/compiler/ast"
	"github.com/slowlang/scc/src/compiler/irgen"
)

func GenFile(ctx context.Context, name string) (out string, err error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return "", errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(data), "name", name)

	return Gen(ctx, data)
}

func Gen(ctx context.Context, data []byte) (out string, err error) {
	tl, err := ast.Decode(data)
	if err != nil {
		return "", errors.Wrap(err, "decode syntax tree")
	}

	u, err := irgen.GenUnit(ctx, tl)
	if err != nil {
		return "", errors.Wrap(err, "lower unit")
	}

	return u.Dump(), nil
}
