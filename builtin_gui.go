package main

// builtin_gui.go ports original_source/src/builtin/gui.rs's init_gui:
// window-class registration, CreateWindowExA, and the GetMessage/
// TranslateMessage/DispatchMessage loop. Two simplifications from the
// original, both forced by limitations already recorded elsewhere in
// this port rather than scope-cutting for its own sake: the ANSI ("A")
// Win32 entry points are used throughout instead of the wide ("W")
// ones, since GlobalStr only interns single-byte-per-character strings
// (no UTF-16 encoder exists in this backend); and the window procedure
// invokes the user's callback with zero arguments on WM_PAINT instead
// of passing pixel/frame coordinates, since builtin_control.go's
// lambda has no parameter-passing support at all (a direct port of the
// original's own "PARAMETERS HAS BEEN NOT IMPLEMENTED" restriction).

const (
	wmDestroy = 0x0002
	wmPaint   = 0x000F
)

func (c *Compiler) registerGUI() {
	c.Register("GUI", false, false, builtinInitGUI, Exactly(1))
}

func builtinInitGUI(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	nameArg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if nameArg.Kind != KindString || nameArg.IsVar {
		return Value{}, typeErrorf(nameArg.Pos, "argument 1 to `GUI`: expected a literal String naming a lambda")
	}
	pixelFunc, ok := c.userDefined[nameArg.LitString]
	if !ok {
		return Value{}, typeErrorf(nameArg.Pos, "Undefined function: `%s`", nameArg.LitString)
	}

	getModuleHandle := c.Import(DllKernel32, "GetModuleHandleA", 0)
	loadIcon := c.Import(DllUser32, "LoadIconA", 0)
	loadCursor := c.Import(DllUser32, "LoadCursorA", 0)
	registerClass := c.Import(DllUser32, "RegisterClassExA", 0)
	createWindowEx := c.Import(DllUser32, "CreateWindowExA", 0)
	showWindow := c.Import(DllUser32, "ShowWindow", 0)
	updateWindow := c.Import(DllUser32, "UpdateWindow", 0)
	getMessage := c.Import(DllUser32, "GetMessageA", 0)
	translateMessage := c.Import(DllUser32, "TranslateMessage", 0)
	dispatchMessage := c.Import(DllUser32, "DispatchMessageA", 0)

	wndProc, err := c.buildWndProc(pixelFunc)
	if err != nil {
		return Value{}, err
	}

	if c.guiFlag == nil {
		id := c.GetBss(1)
		c.guiFlag = &id
	}

	className := c.GlobalStr("Jsonpiler GUI")
	windowName := c.GlobalStr("Jsonpiler GUI")
	wndClass := c.GetBss(0x50)
	msg := c.GetBss(0x30)
	guiHandle := c.GetBss(8)
	msgLoop := c.Labels.Fresh()
	exitGUI := c.Labels.Fresh()

	scope.Emit(MovBB(MovPair{Dst: movReg(Rax), Src: movMem(memGlobal(*c.guiFlag))}))
	scope.Emit(LogicRbRb(LogicTest, Rax, Rax))
	scope.Emit(JCc(CCNE, c.customErrorHandler("GUI already initialized")))
	scope.Emit(MovBB(MovPair{Dst: movMem(memGlobal(*c.guiFlag)), HasImm: true, Imm: 0xFF}))

	scope.Emit(movQImm(Rax, 0x50))
	scope.Emit(MovQQ(MovPair{Dst: movMem(memGlobalD(wndClass, 0x00)), Src: movReg(Rax)}))
	scope.Emit(LeaRM(Rax, memGlobal(wndProc)))
	scope.Emit(MovQQ(MovPair{Dst: movMem(memGlobalD(wndClass, 0x08)), Src: movReg(Rax)}))
	scope.Emit(Clear(Rax))
	scope.Emit(MovQQ(MovPair{Dst: movMem(memGlobalD(wndClass, 0x10)), Src: movReg(Rax)}))

	scope.Emit(Clear(Rcx))
	c.callAPICheckNull(getModuleHandle, "GetModuleHandleA failed", scope)
	scope.Emit(MovQQ(MovPair{Dst: movMem(memGlobalD(wndClass, 0x18)), Src: movReg(Rax)}))

	scope.Emit(Clear(Rcx))
	scope.Emit(movQImm(Rdx, 0x7F00)) // IDI_APPLICATION
	c.callAPICheckNull(loadIcon, "LoadIconA failed", scope)
	scope.Emit(MovQQ(MovPair{Dst: movMem(memGlobalD(wndClass, 0x20)), Src: movReg(Rax)}))

	scope.Emit(Clear(Rcx))
	scope.Emit(movQImm(Rdx, 0x7F00)) // IDC_ARROW
	c.callAPICheckNull(loadCursor, "LoadCursorA failed", scope)
	scope.Emit(MovQQ(MovPair{Dst: movMem(memGlobalD(wndClass, 0x28)), Src: movReg(Rax)}))

	scope.Emit(movQImm(Rax, 6)) // COLOR_WINDOW + 1
	scope.Emit(MovQQ(MovPair{Dst: movMem(memGlobalD(wndClass, 0x30)), Src: movReg(Rax)}))
	scope.Emit(Clear(Rax))
	scope.Emit(MovQQ(MovPair{Dst: movMem(memGlobalD(wndClass, 0x38)), Src: movReg(Rax)}))
	scope.Emit(LeaRM(Rax, memGlobal(className)))
	scope.Emit(MovQQ(MovPair{Dst: movMem(memGlobalD(wndClass, 0x40)), Src: movReg(Rax)}))
	scope.Emit(Clear(Rax))
	scope.Emit(MovQQ(MovPair{Dst: movMem(memGlobalD(wndClass, 0x48)), Src: movReg(Rax)}))

	scope.Emit(LeaRM(Rcx, memGlobal(wndClass)))
	c.callAPICheckNull(registerClass, "RegisterClassExA failed", scope)

	scope.UpdateArgsSlots(12) // CreateWindowExA takes 12 arguments total; 4 in registers, 8 on the stack past the shadow space
	scope.Emit(Clear(Rcx))
	scope.Emit(LeaRM(Rdx, memGlobal(className)))
	scope.Emit(LeaRM(R8, memGlobal(windowName)))
	scope.Emit(movQImm(R9, 0xCF0000)) // WS_OVERLAPPEDWINDOW
	scope.Emit(movQImm(Rax, 0x80000000))
	scope.Emit(MovArgSlot(0x20, Rax)) // x = CW_USEDEFAULT
	scope.Emit(MovArgSlot(0x28, Rax)) // y = CW_USEDEFAULT
	scope.Emit(MovArgSlot(0x30, Rax)) // width = CW_USEDEFAULT
	scope.Emit(MovArgSlot(0x38, Rax)) // height = CW_USEDEFAULT
	scope.Emit(Clear(Rax))
	scope.Emit(MovArgSlot(0x40, Rax)) // hWndParent
	scope.Emit(MovArgSlot(0x48, Rax)) // hMenu
	scope.Emit(MovQQ(MovPair{Dst: movReg(Rax), Src: movMem(memGlobalD(wndClass, 0x18))}))
	scope.Emit(MovArgSlot(0x50, Rax)) // hInstance
	scope.Emit(Clear(Rax))
	scope.Emit(MovArgSlot(0x58, Rax)) // lpParam
	c.callAPICheckNull(createWindowEx, "CreateWindowExA failed", scope)

	scope.Emit(MovQQ(MovPair{Dst: movMem(memGlobal(guiHandle)), Src: movReg(Rax)}))
	scope.Emit(MovQQ(MovPair{Dst: movReg(Rcx), Src: movMem(memGlobal(guiHandle))}))
	scope.Emit(movQImm(Rdx, 5)) // SW_SHOW
	scope.Emit(CallImp(showWindow))
	scope.Emit(MovQQ(MovPair{Dst: movReg(Rcx), Src: movMem(memGlobal(guiHandle))}))
	c.callAPICheckNull(updateWindow, "UpdateWindow failed", scope)

	scope.Emit(Lbl(msgLoop))
	scope.Emit(LeaRM(Rcx, memGlobal(msg)))
	scope.Emit(Clear(Rdx))
	scope.Emit(Clear(R8))
	scope.Emit(Clear(R9))
	scope.Emit(CallImp(getMessage))
	scope.Emit(Clear(Rcx))
	scope.Emit(SubRR(Rax, Rcx))
	scope.Emit(JCc(CCE, exitGUI)) // GetMessage returned 0: WM_QUIT
	scope.Emit(LeaRM(Rcx, memGlobal(msg)))
	scope.Emit(CallImp(translateMessage))
	scope.Emit(LeaRM(Rcx, memGlobal(msg)))
	scope.Emit(CallImp(dispatchMessage))
	scope.Emit(Jmp(msgLoop))
	scope.Emit(Lbl(exitGUI))
	return NullValue(), nil
}

// buildWndProc emits a standalone Win64 window procedure (hWnd, uMsg,
// wParam, lParam -> LRESULT) that invokes pixelFunc with no arguments
// on WM_PAINT and otherwise defers to DefWindowProcA, returning its
// entry label. Shares builtinLambda's prologue/epilogue shape so
// seh.go's unwind table builder covers it identically.
func (c *Compiler) buildWndProc(pixelFunc *AsmFunc) (LabelID, error) {
	defWindowProc := c.Import(DllUser32, "DefWindowProcA", 0)
	postQuitMessage := c.Import(DllUser32, "PostQuitMessage", 0)

	inner := NewScope()
	hwnd, err := inner.Tmp(8)
	if err != nil {
		return 0, err
	}
	msgSlot, err := inner.Tmp(8)
	if err != nil {
		return 0, err
	}
	wparam, err := inner.Tmp(8)
	if err != nil {
		return 0, err
	}
	lparam, err := inner.Tmp(8)
	if err != nil {
		return 0, err
	}
	inner.Emit(MovQQ(MovPair{Dst: movMem(hwnd), Src: movReg(Rcx)}))
	inner.Emit(MovQQ(MovPair{Dst: movMem(msgSlot), Src: movReg(Rdx)}))
	inner.Emit(MovQQ(MovPair{Dst: movMem(wparam), Src: movReg(R8)}))
	inner.Emit(MovQQ(MovPair{Dst: movMem(lparam), Src: movReg(R9)}))

	paintLabel := c.Labels.Fresh()
	destroyLabel := c.Labels.Fresh()
	defaultLabel := c.Labels.Fresh()
	returnLabel := c.Labels.Fresh()

	inner.Emit(MovQQ(MovPair{Dst: movReg(Rax), Src: movMem(msgSlot)}))
	inner.Emit(CmpRIb(Rax, wmPaint))
	inner.Emit(JCc(CCE, paintLabel))
	inner.Emit(CmpRIb(Rax, wmDestroy))
	inner.Emit(JCc(CCE, destroyLabel))
	inner.Emit(Jmp(defaultLabel))

	inner.Emit(Lbl(paintLabel))
	inner.Emit(Call(pixelFunc.Label))
	inner.Emit(Jmp(defaultLabel))

	inner.Emit(Lbl(destroyLabel))
	inner.Emit(Clear(Rcx))
	inner.Emit(CallImp(postQuitMessage))
	inner.Emit(Clear(Rax))
	inner.Emit(Jmp(returnLabel))

	inner.Emit(Lbl(defaultLabel))
	inner.Emit(MovQQ(MovPair{Dst: movReg(Rcx), Src: movMem(hwnd)}))
	inner.Emit(MovQQ(MovPair{Dst: movReg(Rdx), Src: movMem(msgSlot)}))
	inner.Emit(MovQQ(MovPair{Dst: movReg(R8), Src: movMem(wparam)}))
	inner.Emit(MovQQ(MovPair{Dst: movReg(R9), Src: movMem(lparam)}))
	inner.Emit(CallImp(defWindowProc))
	inner.Emit(Lbl(returnLabel))

	entryLabel := c.Labels.Fresh()
	endLabel := c.Labels.Fresh()
	frameSize, err := inner.CalcAlloc(0)
	if err != nil {
		return 0, err
	}
	c.Text = append(c.Text,
		Lbl(entryLabel),
		Push(Rbp),
		movQ(Rbp, Rsp),
		SubRId(Rsp, int32(frameSize)),
	)
	c.Text = append(c.Text, inner.body...)
	c.Text = append(c.Text,
		movQ(Rsp, Rbp),
		Pop(Rbp),
		Custom([]byte{0xC3}), // ret
		Lbl(endLabel),
	)
	c.Data = append(c.Data, SehDirective(entryLabel, endLabel, frameSize))
	return entryLabel, nil
}
