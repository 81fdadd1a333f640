package core

import (
	"strings"

	"github.com/hupe1980/contextmesh/logging"
)

// Sentinel is the type of the Default value returned when resolution finds
// nothing. It is distinct from an explicit empty string stored by a caller.
type Sentinel struct{}

// Default is returned by Resolve and WorkingState.Lookup for every missing
// key or broken attribute path. Resolution never raises.
var Default any = Sentinel{}

// IsDefault reports whether v is the Default sentinel.
func IsDefault(v any) bool {
	_, ok := v.(Sentinel)
	return ok
}

// Scoping prefixes understood by Resolve.
const (
	prefixCurrent = "current."
	attrParent    = "parent"
	attrRoot      = "root"
)

// Resolve looks up key across the context hierarchy.
//
// A "current." prefix strips the prefix and resolves against ctx only. A
// "parent." or "root." prefix walks the named attribute chain on the Context
// itself ("parent.parent.x" climbs two levels) and resolves the remaining
// suffix against the context found at the end of the chain, non-recursively.
// A bare key checks context-native attributes first, then the current
// agent's WorkingState, then the task WorkingState; with recursive set, the
// same non-recursive lookup repeats against each ancestor until a
// non-default value is found or the root is exhausted.
//
// A missing attribute anywhere in a dotted path returns Default immediately;
// resolution never returns an error.
func Resolve(key string, ctx *Context, recursive bool) any {
	if ctx == nil || key == "" {
		return Default
	}

	if rest, ok := strings.CutPrefix(key, prefixCurrent); ok {
		return resolveLocal(ctx, rest)
	}

	if strings.HasPrefix(key, attrParent+".") || strings.HasPrefix(key, attrRoot+".") {
		return resolveScoped(key, ctx)
	}

	levels := 0
	for node := ctx; node != nil; node = node.Parent() {
		if v := resolveLocal(node, key); !IsDefault(v) {
			logResolution(ctx, key, true, levels)
			return v
		}
		if !recursive {
			break
		}
		levels++
	}

	logResolution(ctx, key, false, levels)

	return Default
}

// logResolution records a lookup outcome, preferring the structured domain
// event when the logger supports it.
func logResolution(ctx *Context, key string, found bool, levels int) {
	if dl, ok := ctx.Logger().(logging.DomainLogger); ok {
		dl.LogResolution(key, found, levels)
		return
	}
	if found {
		ctx.LogDebug("resolve.hit", "key", key, "levels", levels)
		return
	}
	ctx.LogDebug("resolve.miss", "key", key, "levels", levels)
}

// resolveScoped walks parent/root attribute chains then resolves the suffix
// non-recursively at the destination context.
func resolveScoped(key string, ctx *Context) any {
	parts := strings.Split(key, ".")
	node := ctx
	i := 0
	for i < len(parts) && (parts[i] == attrParent || parts[i] == attrRoot) {
		if parts[i] == attrParent {
			node = node.Parent()
		} else {
			node = node.Root()
		}
		if node == nil {
			return Default
		}
		i++
	}
	if i == len(parts) {
		return Default
	}
	return resolveLocal(node, strings.Join(parts[i:], "."))
}

// resolveLocal performs the single-context lookup: native attributes, then
// the current agent's WorkingState, then the task WorkingState.
func resolveLocal(ctx *Context, key string) any {
	if v, ok := ctx.attr(key); ok {
		return v
	}
	if agent := ctx.CurrentAgent(); agent != "" {
		if ws := ctx.State.Agents[agent]; ws != nil {
			if v := ws.Lookup(key); !IsDefault(v) {
				return v
			}
		}
	}
	return ctx.State.Working.Lookup(key)
}

// attr resolves context-native attribute names by direct lookup.
func (c *Context) attr(name string) (any, bool) {
	switch name {
	case "user_id":
		return c.State.Input.UserID, true
	case "session_id":
		return c.State.Input.SessionID, true
	case "task_id":
		return c.State.Input.TaskID, true
	case "task_content":
		return c.State.Input.Content, true
	case "origin_user_input":
		return c.State.Input.OriginUserInput, true
	case "task_status":
		return string(c.State.Output.Status), true
	case "task_result":
		return c.State.Output.Result, true
	case "workspace":
		return c.Workspace, true
	case "current_agent":
		return c.currentAgent, true
	case "parent_task_id":
		if c.State.ParentTask == nil {
			return "", false
		}
		return c.State.ParentTask.TaskID, true
	default:
		return nil, false
	}
}
