package irtext

import (
	"fmt"

	"github.com/gox8632/x8632cc/pkg/ir"
)

// Parser is a recursive-descent parser over irtext's s-expression
// grammar, in the same curToken/peekToken shape as pkg/parser.Parser.
type Parser struct {
	l         *Lexer
	curToken  Token
	peekToken Token
	errors    []string
}

func NewParser(l *Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) addError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s", p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) expect(t TokenType) bool {
	if p.curToken.Type == t {
		p.nextToken()
		return true
	}
	p.addError("expected %s, got %s %q", t, p.curToken.Type, p.curToken.Literal)
	return false
}

func (p *Parser) expectIdent(word string) bool {
	if p.curToken.Type == TokenIdent && p.curToken.Literal == word {
		p.nextToken()
		return true
	}
	p.addError("expected %q, got %s %q", word, p.curToken.Type, p.curToken.Literal)
	return false
}

func (p *Parser) lparen() bool { return p.expect(TokenLParen) }
func (p *Parser) rparen() bool { return p.expect(TokenRParen) }

// ParseModule parses a top-level (module ...) form. On any malformed
// input it records errors via Errors() and returns as much as it
// managed to build, matching pkg/parser's recover-and-continue style.
func (p *Parser) ParseModule() *ir.Module {
	mod := &ir.Module{}
	if !p.lparen() || !p.expectIdent("module") {
		return mod
	}
	for p.curToken.Type == TokenLParen {
		p.nextToken() // consume '('
		switch p.curToken.Literal {
		case "global":
			p.nextToken()
			mod.Globals = append(mod.Globals, p.parseGlobal())
		case "func":
			p.nextToken()
			mod.Functions = append(mod.Functions, p.parseFunc())
		default:
			p.addError("expected global or func, got %q", p.curToken.Literal)
			p.skipForm()
		}
	}
	p.rparen()
	return mod
}

// skipForm consumes tokens until the matching close paren for a form
// whose opening "(" and keyword have already been consumed, recovering
// from an unrecognized or malformed nested form.
func (p *Parser) skipForm() {
	depth := 1
	for depth > 0 && p.curToken.Type != TokenEOF {
		switch p.curToken.Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		}
		p.nextToken()
	}
}

func (p *Parser) parseGlobal() ir.GlobalVar {
	g := ir.GlobalVar{Name: p.curToken.Literal}
	p.expect(TokenGlobal)
	g.Size = p.parseIntLit()
	g.Align = int(p.parseIntLit())
	g.ReadOnly = p.parseBoolIdent()
	p.rparen()
	return g
}

func (p *Parser) parseBoolIdent() bool {
	v := p.curToken.Literal == "true"
	p.expect(TokenIdent)
	return v
}

func (p *Parser) parseIntLit() int64 {
	var n int64
	fmt.Sscanf(p.curToken.Literal, "%d", &n)
	p.expect(TokenInt)
	return n
}

func (p *Parser) parseFloatLit() float64 {
	var f float64
	fmt.Sscanf(p.curToken.Literal, "%g", &f)
	p.expect(TokenFloat)
	return f
}

func (p *Parser) parseReg() ir.Reg {
	var n int
	fmt.Sscanf(p.curToken.Literal, "%d", &n)
	p.expect(TokenReg)
	return ir.Reg(n)
}

func (p *Parser) parseType() ir.Type {
	ty, ok := typeNames[p.curToken.Literal]
	if !ok {
		p.addError("unknown type %q", p.curToken.Literal)
	}
	p.expect(TokenIdent)
	return ty
}

func (p *Parser) parseLabel() ir.Label {
	l := ir.Label(p.curToken.Literal)
	p.expect(TokenIdent)
	return l
}

func (p *Parser) parseFunc() *ir.Function {
	fn := &ir.Function{Name: p.curToken.Literal}
	p.expect(TokenGlobal)

	p.lparen()
	p.expectIdent("ret")
	fn.RetTy = p.parseType()
	p.rparen()

	p.lparen()
	p.expectIdent("params")
	for p.curToken.Type == TokenLParen {
		p.nextToken()
		ty := p.parseType()
		reg := p.parseReg()
		fn.Params = append(fn.Params, ir.Param{Reg: reg, Ty: ty})
		p.rparen()
	}
	p.rparen()

	maxReg := ir.Reg(0)
	for _, prm := range fn.Params {
		if prm.Reg > maxReg {
			maxReg = prm.Reg
		}
	}

	for p.curToken.Type == TokenLParen {
		p.nextToken()
		p.expectIdent("block")
		blk := &ir.BasicBlock{Label: p.parseLabel()}
		for p.curToken.Type == TokenLParen {
			p.nextToken()
			in := p.parseInstr()
			p.rparen()
			blk.Instr = append(blk.Instr, in)
			if d, ok := instrDest(in); ok && d > maxReg {
				maxReg = d
			}
		}
		p.rparen()
		fn.Blocks = append(fn.Blocks, blk)
	}
	fn.NextReg = maxReg
	p.rparen()
	return fn
}

// instrDest returns the destination register an instruction writes, if
// any, so NextReg can be recovered from a parsed function without
// requiring the notation to spell it out separately.
func instrDest(in ir.Instr) (ir.Reg, bool) {
	switch v := in.(type) {
	case ir.IAssign:
		return v.Dest, true
	case ir.IBinOp:
		return v.Dest, true
	case ir.IIcmp:
		return v.Dest, true
	case ir.IFcmp:
		return v.Dest, true
	case ir.ICast:
		return v.Dest, true
	case ir.ISelect:
		return v.Dest, true
	case ir.ILoad:
		return v.Dest, true
	case ir.ICall:
		if v.Dest != nil {
			return *v.Dest, true
		}
	case ir.IAlloca:
		return v.Dest, true
	case ir.IExtractElement:
		return v.Dest, true
	case ir.IInsertElement:
		return v.Dest, true
	case ir.IPhi:
		return v.Dest, true
	case ir.IIntrinsic:
		if v.Dest != nil {
			return *v.Dest, true
		}
	}
	return 0, false
}

var typeNames = map[string]ir.Type{
	"void": ir.Void, "i1": ir.I1, "i8": ir.I8, "i16": ir.I16, "i32": ir.I32, "i64": ir.I64,
	"f32": ir.F32, "f64": ir.F64,
	"v4i1": ir.V4i1, "v8i1": ir.V8i1, "v16i1": ir.V16i1,
	"v16i8": ir.V16i8, "v8i16": ir.V8i16, "v4i32": ir.V4i32, "v4f32": ir.V4f32,
}

var binOps = map[string]ir.BinOpKind{
	"add": ir.Add, "sub": ir.Sub, "mul": ir.Mul, "and": ir.And, "or": ir.Or, "xor": ir.Xor,
	"shl": ir.Shl, "lshr": ir.Lshr, "ashr": ir.Ashr, "udiv": ir.Udiv, "sdiv": ir.Sdiv,
	"urem": ir.Urem, "srem": ir.Srem, "fadd": ir.Fadd, "fsub": ir.Fsub, "fmul": ir.Fmul,
	"fdiv": ir.Fdiv, "frem": ir.Frem,
}

var intPreds = map[string]ir.IntPredicate{
	"eq": ir.ICmpEq, "ne": ir.ICmpNe, "ugt": ir.ICmpUgt, "uge": ir.ICmpUge,
	"ult": ir.ICmpUlt, "ule": ir.ICmpUle, "sgt": ir.ICmpSgt, "sge": ir.ICmpSge,
	"slt": ir.ICmpSlt, "sle": ir.ICmpSle,
}

var floatPreds = map[string]ir.FloatPredicate{
	"false": ir.FCmpFalse, "oeq": ir.FCmpOeq, "ogt": ir.FCmpOgt, "oge": ir.FCmpOge,
	"olt": ir.FCmpOlt, "ole": ir.FCmpOle, "one": ir.FCmpOne, "ord": ir.FCmpOrd,
	"ueq": ir.FCmpUeq, "ugt": ir.FCmpUgt, "uge": ir.FCmpUge, "ult": ir.FCmpUlt,
	"ule": ir.FCmpUle, "une": ir.FCmpUne, "uno": ir.FCmpUno, "true": ir.FCmpTrue,
}

var castKinds = map[string]ir.CastKind{
	"sext": ir.Sext, "zext": ir.Zext, "trunc": ir.Trunc, "fptrunc": ir.Fptrunc,
	"fpext": ir.Fpext, "fptosi": ir.Fptosi, "fptoui": ir.Fptoui,
	"sitofp": ir.Sitofp, "uitofp": ir.Uitofp, "bitcast": ir.Bitcast,
}

var intrinsicKinds = map[string]ir.IntrinsicKind{
	"atomic_load": ir.AtomicLoad, "atomic_store": ir.AtomicStore, "atomic_cmpxchg": ir.AtomicCmpxchg,
	"atomic_rmw_add": ir.AtomicRMWAdd, "atomic_rmw_sub": ir.AtomicRMWSub, "atomic_rmw_or": ir.AtomicRMWOr,
	"atomic_rmw_and": ir.AtomicRMWAnd, "atomic_rmw_xor": ir.AtomicRMWXor, "atomic_rmw_xchg": ir.AtomicRMWXchg,
	"atomic_fence": ir.AtomicFence, "atomic_fence_all": ir.AtomicFenceAll, "atomic_is_lock_free": ir.AtomicIsLockFree,
	"bswap": ir.Bswap, "ctlz": ir.Ctlz, "cttz": ir.Cttz, "ctpop": ir.Ctpop, "sqrt": ir.Sqrt,
	"memcpy": ir.Memcpy, "memmove": ir.Memmove, "memset": ir.Memset,
	"longjmp": ir.Longjmp, "setjmp": ir.Setjmp, "stacksave": ir.Stacksave, "stackrestore": ir.Stackrestore,
	"nacl_read_tp": ir.NaClReadTP, "trap": ir.Trap,
}

// parseInstr dispatches on the instruction keyword; curToken is the
// keyword itself (the opening "(" was already consumed by the caller).
func (p *Parser) parseInstr() ir.Instr {
	keyword := p.curToken.Literal
	p.expect(TokenIdent)

	switch keyword {
	case "assign":
		dest := p.parseReg()
		ty := p.parseType()
		return ir.IAssign{Dest: dest, Ty: ty, Src: p.parseValue()}

	case "binop":
		dest := p.parseReg()
		ty := p.parseType()
		opName := p.curToken.Literal
		p.expect(TokenIdent)
		op, ok := binOps[opName]
		if !ok {
			p.addError("unknown binop %q", opName)
		}
		lhs := p.parseValue()
		rhs := p.parseValue()
		return ir.IBinOp{Op: op, Dest: dest, Ty: ty, LHS: lhs, RHS: rhs}

	case "icmp":
		dest := p.parseReg()
		ty := p.parseType()
		predName := p.curToken.Literal
		p.expect(TokenIdent)
		pred, ok := intPreds[predName]
		if !ok {
			p.addError("unknown icmp predicate %q", predName)
		}
		lhs := p.parseValue()
		rhs := p.parseValue()
		return ir.IIcmp{Pred: pred, Dest: dest, Ty: ty, LHS: lhs, RHS: rhs}

	case "fcmp":
		dest := p.parseReg()
		ty := p.parseType()
		predName := p.curToken.Literal
		p.expect(TokenIdent)
		pred, ok := floatPreds[predName]
		if !ok {
			p.addError("unknown fcmp predicate %q", predName)
		}
		lhs := p.parseValue()
		rhs := p.parseValue()
		return ir.IFcmp{Pred: pred, Dest: dest, Ty: ty, LHS: lhs, RHS: rhs}

	case "cast":
		dest := p.parseReg()
		kindName := p.curToken.Literal
		p.expect(TokenIdent)
		kind, ok := castKinds[kindName]
		if !ok {
			p.addError("unknown cast kind %q", kindName)
		}
		destTy := p.parseType()
		srcTy := p.parseType()
		return ir.ICast{Kind: kind, Dest: dest, DestTy: destTy, SrcTy: srcTy, Src: p.parseValue()}

	case "br":
		if p.curToken.Type == TokenIdent && p.curToken.Literal == "none" {
			p.nextToken()
			return ir.IBr{True: p.parseLabel()}
		}
		cond := p.parseValue()
		t := p.parseLabel()
		f := p.parseLabel()
		return ir.IBr{Cond: cond, True: t, False: f}

	case "select":
		dest := p.parseReg()
		ty := p.parseType()
		condTy := p.parseType()
		cond := p.parseValue()
		tv := p.parseValue()
		fv := p.parseValue()
		return ir.ISelect{Dest: dest, Ty: ty, CondTy: condTy, Cond: cond, TrueVal: tv, FalseVal: fv}

	case "switch":
		ty := p.parseType()
		val := p.parseValue()
		sw := ir.ISwitch{Ty: ty, Value: val}
		for p.curToken.Type == TokenLParen {
			p.nextToken()
			if p.curToken.Literal == "default" {
				p.nextToken()
				sw.Default = p.parseLabel()
			} else {
				p.expectIdent("case")
				v := p.parseIntLit()
				sw.Cases = append(sw.Cases, ir.SwitchCase{Value: v, Target: p.parseLabel()})
			}
			p.rparen()
		}
		return sw

	case "load":
		dest := p.parseReg()
		ty := p.parseType()
		return ir.ILoad{Dest: dest, Ty: ty, Addr: p.parseValue()}

	case "store":
		ty := p.parseType()
		addr := p.parseValue()
		val := p.parseValue()
		return ir.IStore{Ty: ty, Addr: addr, Val: val}

	case "ret":
		if p.curToken.Type == TokenRParen {
			return ir.IRet{Ty: ir.Void}
		}
		ty := p.parseType()
		return ir.IRet{Val: p.parseValue(), Ty: ty}

	case "call":
		dest := p.parseOptReg()
		retTy := p.parseType()
		callee := p.parseValue()
		var argTys []ir.Type
		var args []ir.Value
		p.lparen()
		p.expectIdent("args")
		for p.curToken.Type == TokenLParen {
			p.nextToken()
			argTys = append(argTys, p.parseType())
			args = append(args, p.parseValue())
			p.rparen()
		}
		p.rparen()
		hasSideEffects := p.parseBoolIdent()
		return ir.ICall{Dest: dest, RetTy: retTy, Callee: callee, ArgTys: argTys, Args: args, HasSideEffects: hasSideEffects}

	case "alloca":
		dest := p.parseReg()
		elemSize := p.parseIntLit()
		size := p.parseValue()
		align := p.parseIntLit()
		return ir.IAlloca{Dest: dest, ElemSize: int32(elemSize), Size: size, Align: int32(align)}

	case "extractelement":
		dest := p.parseReg()
		vecTy := p.parseType()
		vec := p.parseValue()
		idx := p.parseIntLit()
		return ir.IExtractElement{Dest: dest, VecTy: vecTy, Vec: vec, Index: int(idx)}

	case "insertelement":
		dest := p.parseReg()
		vecTy := p.parseType()
		vec := p.parseValue()
		elem := p.parseValue()
		idx := p.parseIntLit()
		return ir.IInsertElement{Dest: dest, VecTy: vecTy, Vec: vec, Elem: elem, Index: int(idx)}

	case "phi":
		dest := p.parseReg()
		ty := p.parseType()
		phi := ir.IPhi{Dest: dest, Ty: ty}
		for p.curToken.Type == TokenLParen {
			p.nextToken()
			pred := p.parseLabel()
			val := p.parseValue()
			phi.Incoming = append(phi.Incoming, ir.PhiIncoming{Pred: pred, Value: val})
			p.rparen()
		}
		return phi

	case "intrinsic":
		dest := p.parseOptReg()
		kindName := p.curToken.Literal
		p.expect(TokenIdent)
		kind, ok := intrinsicKinds[kindName]
		if !ok {
			p.addError("unknown intrinsic %q", kindName)
		}
		ty := p.parseType()
		var args []ir.Value
		p.lparen()
		p.expectIdent("args")
		for p.curToken.Type != TokenRParen {
			args = append(args, p.parseValue())
		}
		p.rparen()
		in := ir.IIntrinsic{Kind: kind, Dest: dest, Ty: ty, Args: args}
		if p.curToken.Type == TokenInt {
			in.Order = ir.MemoryOrder(p.parseIntLit())
			in.OrderOK = true
		}
		return in

	default:
		p.addError("unknown instruction %q", keyword)
		p.skipForm()
		return ir.IRet{Ty: ir.Void}
	}
}

// parseOptReg parses "none" as "no destination" or a %reg as one,
// matching ICall.Dest/IIntrinsic.Dest's *Reg (nil means discarded).
func (p *Parser) parseOptReg() *ir.Reg {
	if p.curToken.Type == TokenIdent && p.curToken.Literal == "none" {
		p.nextToken()
		return nil
	}
	r := p.parseReg()
	return &r
}

func (p *Parser) parseValue() ir.Value {
	if !p.lparen() {
		return ir.ConstInt{}
	}
	keyword := p.curToken.Literal
	p.expect(TokenIdent)

	var v ir.Value
	switch keyword {
	case "use":
		ty := p.parseType()
		v = ir.Use{Reg: p.parseReg(), Ty: ty}
	case "const":
		ty := p.parseType()
		v = ir.ConstInt{Ty: ty, Value: p.parseIntLit()}
	case "constf":
		v = ir.ConstFloat{Value: float32(p.parseFloatLit())}
	case "constd":
		v = ir.ConstDouble{Value: p.parseFloatLit()}
	case "globaladdr":
		ty := p.parseType()
		name := p.curToken.Literal
		p.expect(TokenGlobal)
		v = ir.ConstRelocatable{Ty: ty, Name: name, Offset: int32(p.parseIntLit())}
	case "undef":
		v = ir.ConstUndef{Ty: p.parseType()}
	default:
		p.addError("unknown value form %q", keyword)
		v = ir.ConstInt{}
	}
	p.rparen()
	return v
}
