package log

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const maxFrames = 64

type hasPC interface{ PC() uintptr }

type hasStack interface{ StackPCs() []uintptr }

// wrapper is implemented by xerrors types so they can be skipped when
// naming the error type.
type wrapper interface{ IsXerrorsWrapper() }

// internalFrame reports frames that belong to the runtime, slog, this
// package or xerrors.
func internalFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") ||
		strings.HasPrefix(fn, "log/slog.") ||
		strings.Contains(fn, "/internal/log.") ||
		strings.Contains(fn, "/internal/xerrors.")
}

// renderStack prints func/file:line pairs starting at the first frame
// outside the logging machinery, stopping at the runtime.
func renderStack(pcs []uintptr) string {
	var b strings.Builder
	started := false
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if strings.HasPrefix(fr.Function, "runtime.") {
			break
		}
		if !started && fr.Function != "" && !internalFrame(fr.Function) {
			started = true
		}
		if started {
			fmt.Fprintf(&b, "%s\n\t%s:%d\n", fr.Function, fr.File, fr.Line)
		}
		if !more {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

// errorChain lists each distinct message while unwrapping, then the members
// of a top-level errors.Join.
func errorChain(err error) []string {
	var out []string
	add := func(s string) {
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		add(e.Error())
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			add(e.Error())
		}
	}
	return out
}

// errorLinks describes up to limit chain links with the position where each
// was wrapped. The outermost link is always present.
func errorLinks(err error, limit int) []map[string]any {
	var links []map[string]any
	for depth, e := 0, err; e != nil && depth < limit; depth, e = depth+1, errors.Unwrap(e) {
		link := map[string]any{"msg": e.Error()}
		fr, ok := wrapPosition(e)
		if ok {
			link["func"], link["file"], link["line"] = fr.Function, fr.File, fr.Line
		}
		if ok || depth == 0 {
			links = append(links, link)
		}
	}
	return links
}

func wrapPosition(e error) (runtime.Frame, bool) {
	switch v := e.(type) {
	case hasPC:
		if v.PC() == 0 {
			return runtime.Frame{}, false
		}
		fr, _ := runtime.CallersFrames([]uintptr{v.PC()}).Next()
		return fr, true
	case hasStack:
		frames := runtime.CallersFrames(v.StackPCs())
		for {
			fr, more := frames.Next()
			if fr.Function != "" && !internalFrame(fr.Function) {
				return fr, true
			}
			if !more {
				return runtime.Frame{}, false
			}
		}
	}
	return runtime.Frame{}, false
}

// errorTypes returns the first non-wrapper type in the chain and the type
// of the innermost error.
func errorTypes(err error) (surface, root string) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		root = fmt.Sprintf("%T", e)
		if surface != "" {
			continue
		}
		if _, ok := e.(wrapper); ok {
			continue
		}
		if root == "*fmt.wrapError" || root == "*fmt.wrapErrors" {
			continue
		}
		surface = root
	}
	if surface == "" {
		surface = fmt.Sprintf("%T", err)
	}
	return surface, root
}
