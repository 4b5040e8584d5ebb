package vm

import (
	"github.com/funvibe/jot/internal/config"
)

// execute is the main interpreter loop. It returns when the outermost frame returns.
func (t *thread) execute() Value {
	for {
		t.checkContext()

		op := Opcode(t.readByte())
		switch op {
		case OP_CONST:
			k := t.readConstant()
			if k.Kind == ConstInt {
				t.push(IntVal(k.Int))
			} else {
				t.push(StringVal(k.Str))
			}
		case OP_NULL:
			t.push(NilVal())
		case OP_TRUE:
			t.push(BoolVal(true))
		case OP_FALSE:
			t.push(BoolVal(false))
		case OP_POP:
			t.pop()
		case OP_DUP:
			t.push(t.peek(0))
		case OP_DUP2:
			a, b := t.peek(1), t.peek(0)
			t.push(a)
			t.push(b)

		case OP_ADD:
			b, a := t.pop(), t.pop()
			if a.Type == ValString || b.Type == ValString {
				t.push(StringVal(a.String() + b.String()))
				continue
			}
			t.push(IntVal(t.intOperand(a, "+") + t.intOperand(b, "+")))
		case OP_SUB, OP_MUL, OP_DIV, OP_MOD:
			b, a := t.pop(), t.pop()
			t.push(IntVal(t.arith(op, t.intOperand(a, op.String()), t.intOperand(b, op.String()))))
		case OP_NEG:
			t.push(IntVal(-t.intOperand(t.pop(), "-")))

		case OP_EQ:
			b, a := t.pop(), t.pop()
			t.push(BoolVal(a.Equal(b)))
		case OP_NE:
			b, a := t.pop(), t.pop()
			t.push(BoolVal(!a.Equal(b)))
		case OP_LT, OP_LE, OP_GT, OP_GE:
			b, a := t.pop(), t.pop()
			t.push(BoolVal(compare(op, t.intOperand(a, op.String()), t.intOperand(b, op.String()))))
		case OP_NOT:
			t.push(BoolVal(!t.boolOperand(t.pop())))

		case OP_GET_LOCAL:
			slot := int(t.readByte())
			t.push(t.stack[t.frame.base+slot])
		case OP_SET_LOCAL:
			slot := int(t.readByte())
			t.stack[t.frame.base+slot] = t.pop()
		case OP_GET_STATIC:
			k := t.readConstant()
			t.push(t.rt.getStatic(k.ClassIdx, k.MemberIdx))
		case OP_SET_STATIC:
			k := t.readConstant()
			t.rt.setStatic(k.ClassIdx, k.MemberIdx, t.pop())

		case OP_JUMP:
			offset := t.readU16()
			t.frame.ip += offset
		case OP_JUMP_IF_FALSE:
			offset := t.readU16()
			if !t.boolOperand(t.pop()) {
				t.frame.ip += offset
			}
		case OP_LOOP:
			offset := t.readU16()
			t.frame.ip -= offset

		case OP_INVOKE_STATIC:
			k := t.readConstant()
			argc := int(t.readByte())
			fn := t.rt.prog.Classes[k.ClassIdx].Methods[k.MemberIdx].Fn
			t.call(k.ClassIdx, fn, argc)
		case OP_INVOKE_NATIVE:
			k := t.readConstant()
			argc := int(t.readByte())
			args := t.popArgs(argc)
			t.push(t.invokeNative(k.Str, args))
		case OP_INVOKE_VIRTUAL:
			k := t.readConstant()
			argc := int(t.readByte())
			args := t.popArgs(argc)
			recv := t.pop()
			t.push(t.invokeVirtual(recv, k.Str, args))
		case OP_METHOD_REF:
			k := t.readConstant()
			t.push(ObjVal(&MethodHandle{ClassIdx: k.ClassIdx, MethodIdx: k.MemberIdx, Name: k.Class + "::" + k.Member}))

		case OP_NEW_ARRAY:
			elem := t.readConstant().Str
			size := t.intOperand(t.pop(), "new")
			if size < 0 {
				t.throw(config.NegativeArraySizeName, "%d", size)
			}
			t.push(ObjVal(NewArray(elem, int(size))))
		case OP_NEW_OBJECT:
			class := t.readConstant().Str
			argc := int(t.readByte())
			args := t.popArgs(argc)
			if len(args) == 1 && !args[0].IsNil() {
				t.push(ObjVal(t.newException(class, args[0].String(), true)))
			} else {
				t.push(ObjVal(t.newException(class, "", false)))
			}
		case OP_GET_INDEX:
			idx := t.pop()
			arr := t.arrayOperand(t.pop())
			i := t.intOperand(idx, "[]")
			v, ok := arr.Get(i)
			if !ok {
				t.throw(config.IndexOutOfBoundsName, "Index %d out of bounds for length %d", i, arr.Len())
			}
			t.push(v)
		case OP_SET_INDEX:
			v := t.pop()
			idx := t.pop()
			arr := t.arrayOperand(t.pop())
			i := t.intOperand(idx, "[]")
			if !arr.Set(i, v) {
				t.throw(config.IndexOutOfBoundsName, "Index %d out of bounds for length %d", i, arr.Len())
			}
		case OP_ARRAY_LENGTH:
			t.push(IntVal(int64(t.arrayOperand(t.pop()).Len())))

		case OP_THROW:
			t.throwValue(t.pop())
		case OP_RETURN:
			result := t.pop()
			if t.ret(result) {
				return result
			}
		case OP_RETURN_VOID:
			if t.ret(NilVal()) {
				return NilVal()
			}

		default:
			panic(errTruncatedBytecode)
		}
	}
}

func (t *thread) popArgs(argc int) []Value {
	args := make([]Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = t.pop()
	}
	return args
}

func (t *thread) arith(op Opcode, a, b int64) int64 {
	switch op {
	case OP_SUB:
		return a - b
	case OP_MUL:
		return a * b
	case OP_DIV:
		if b == 0 {
			t.throw(config.ArithmeticExceptionName, "/ by zero")
		}
		return a / b
	default:
		if b == 0 {
			t.throw(config.ArithmeticExceptionName, "/ by zero")
		}
		return a % b
	}
}

func compare(op Opcode, a, b int64) bool {
	switch op {
	case OP_LT:
		return a < b
	case OP_LE:
		return a <= b
	case OP_GT:
		return a > b
	}
	return a >= b
}

func (t *thread) intOperand(v Value, operator string) int64 {
	switch v.Type {
	case ValInt:
		return v.Int
	case ValNil:
		t.throw(config.NullPointerExceptionName, "")
	}
	t.throw(config.ClassCastExceptionName, "bad operand type %s for %s", v.TypeName(), operator)
	return 0
}

func (t *thread) boolOperand(v Value) bool {
	switch v.Type {
	case ValBool:
		return v.AsBool()
	case ValNil:
		t.throw(config.NullPointerExceptionName, "")
	}
	t.throw(config.ClassCastExceptionName, "%s cannot be converted to boolean", v.TypeName())
	return false
}

func (t *thread) arrayOperand(v Value) *Array {
	if v.IsNil() {
		t.throw(config.NullPointerExceptionName, "")
	}
	arr, ok := v.Obj.(*Array)
	if !ok {
		t.throw(config.ClassCastExceptionName, "%s is not an array", v.TypeName())
	}
	return arr
}

// throwValue implements `throw v`. A thrown string becomes a RuntimeException.
func (t *thread) throwValue(v Value) {
	switch {
	case v.IsNil():
		t.throw(config.NullPointerExceptionName, "")
	case v.Type == ValString:
		panic(t.newException(config.RuntimeExceptionName, v.Str, true))
	}
	if e, ok := v.Obj.(*Exception); ok {
		panic(e)
	}
	t.throw(config.ClassCastExceptionName, "%s cannot be thrown", v.TypeName())
}
