package jsonskema

import (
	"context"
)

func refString(kc *KeywordCompiler, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", kc.Malformed("value must be a string")
	}
	return s, nil
}

func compileRef(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	ref, err := refString(kc, v)
	if err != nil {
		return nil, err
	}
	target, err := kc.Reference(ref)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, kc *KeywordContext) {
		if !kc.applyOne(ctx, target) {
			kc.Invalidate()
		}
	}, nil
}

// compileDynamicRef resolves the static target now. When the target is a
// dynamic anchor of the referenced name, evaluation looks the name up in the
// dynamic scope, outermost resource first.
func compileDynamicRef(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	ref, err := refString(kc, v)
	if err != nil {
		return nil, err
	}
	loc, err := kc.resolve(ref)
	if err != nil {
		return nil, err
	}
	target, err := kc.c.compileLoc(loc, true)
	if err != nil {
		return nil, err
	}
	var name string
	if _, frag := splitFragment(ref); frag != "" && !isPointerFragment(frag) {
		if kc.Draft() == DraftNext {
			name = frag
		} else if m, ok := loc.value.(map[string]any); ok && m["$dynamicAnchor"] == frag {
			name = frag
		}
	}
	return func(ctx context.Context, kc *KeywordContext) {
		t := target
		if name != "" {
			if d := dynamicTarget(kc.r.scope, name); d != nil {
				t = d
			}
		}
		if !kc.applyOne(ctx, t) {
			kc.Invalidate()
		}
	}, nil
}

// compileRecursiveRef handles the 2019-09 form: a target resource that sets
// "$recursiveAnchor" defers to the outermost such resource in scope.
func compileRecursiveRef(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	ref, err := refString(kc, v)
	if err != nil {
		return nil, err
	}
	loc, err := kc.resolve(ref)
	if err != nil {
		return nil, err
	}
	target, err := kc.c.compileLoc(loc, true)
	if err != nil {
		return nil, err
	}
	recursive := false
	if m, ok := loc.value.(map[string]any); ok && loc.isResourceRoot() {
		recursive = m["$recursiveAnchor"] == true
	}
	return func(ctx context.Context, kc *KeywordContext) {
		t := target
		if recursive {
			if r := recursiveTarget(kc.r.scope); r != nil {
				t = r
			}
		}
		if !kc.applyOne(ctx, t) {
			kc.Invalidate()
		}
	}, nil
}
