package interceptors

// Non-local control transfer.
//
// The one job of these wrappers is the no-return hook: before any
// transfer that abandons stack frames, the current stack position is
// handed to HandleNoReturn so poison belonging to the skipped frames is
// cleared. The hook runs unconditionally, whether or not the runtime is
// initialized, because a stale stack mark after an unhooked jump turns
// into a false positive on the next legitimate reuse of that memory.
// None of these wrappers calls ensureInited for the same reason: a jump
// during startup must still be hooked, not crash the guard.

// Env is a saved jump context. Setjmp arms it; Longjmp unwinds to it.
type Env struct {
	sp uintptr
}

// Setjmp arms env and runs body, returning 0 if body completes normally
// and the (non-zero) Longjmp value if a jump to env cut body short. Jumps
// targeting a different Env continue unwinding past this frame.
func (rt *Runtime) Setjmp(env *Env, body func()) (ret int) {
	env.sp = currentSP()

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if jv, ok := r.(jumpValue); ok && jv.env == env {
			ret = jv.val
			return
		}
		panic(r)
	}()

	body()
	return 0
}

// Longjmp transfers control to the Setjmp that armed env, delivering val
// (a zero val arrives as 1). Never returns.
func (rt *Runtime) Longjmp(env *Env, val int) {
	rt.collab.HandleNoReturn(currentSP())
	rt.jump(env, val)
}

// Siglongjmp is Longjmp under its signal-context name; the saved-mask
// distinction the C pair carries does not exist here, so the transfer is
// identical.
func (rt *Runtime) Siglongjmp(env *Env, val int) {
	rt.collab.HandleNoReturn(currentSP())
	rt.jump(env, val)
}

// Throw propagates v as an exception after hooking the abandoned frames.
// Never returns.
func (rt *Runtime) Throw(v any) {
	rt.collab.HandleNoReturn(currentSP())
	if rt.real.Throw != nil {
		rt.real.Throw(v)
	}
	internalThrow(v)
}

// jump delegates to the resolved transfer handle, falling back to the
// internal transfer when a jump happens before the table is resolved.
func (rt *Runtime) jump(env *Env, val int) {
	if rt.real.Longjmp != nil {
		rt.real.Longjmp(env, val)
	}
	internalLongjmp(env, val)
}
