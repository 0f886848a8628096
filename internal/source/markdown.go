package source

import (
	"context"
	"fmt"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

type markdownDir struct {
	desc Descriptor
}

func (a *markdownDir) Descriptor() Descriptor { return a.desc }

func (a *markdownDir) Read(ctx context.Context) (*Result, error) {
	if _, err := checkPath(a.desc); err != nil {
		return nil, err
	}

	files, err := listFiles(ctx, a.desc.Path, a.desc.Recursive, markdownExts...)
	if err != nil {
		return nil, amerrors.ParseError(fmt.Sprintf("cannot list %s", a.desc.Path), err)
	}

	res := &Result{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		doc, err := ReadFile(f, a.desc.SourceLabel())
		if err != nil {
			res.Failures = append(res.Failures, Failure{Path: absPath(f), Err: err})
			continue
		}
		res.Documents = append(res.Documents, doc)
	}
	return res, nil
}

type singleFile struct {
	desc Descriptor
}

func (a *singleFile) Descriptor() Descriptor { return a.desc }

func (a *singleFile) Read(ctx context.Context) (*Result, error) {
	if _, err := checkPath(a.desc); err != nil {
		return nil, err
	}

	res := &Result{}
	doc, err := ReadFile(a.desc.Path, a.desc.SourceLabel())
	if err != nil {
		res.Failures = append(res.Failures, Failure{Path: absPath(a.desc.Path), Err: err})
		return res, nil
	}
	res.Documents = append(res.Documents, doc)
	return res, nil
}
