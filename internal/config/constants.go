package config

const SourceFileExt = ".jot"

// SourceGlob matches every source file below a source root.
const SourceGlob = "**/*" + SourceFileExt

// Class file and archive extensions
const (
	ClassFileExt   = ".jclass"
	LibraryFileExt = ".jar"
)

// Build directory layout
const (
	ClassesDirName    = "classes"
	ClassesJarName    = "classes.jar"
	ExecutableDirName = "dex"
	ExecutableName    = "program.jex"
)

// Entry point shape
const (
	MainMethodName       = "main"
	MainMethodDescriptor = "(String[])void"
	StaticInitName       = "<clinit>"
)

// Built-in class names
const (
	SystemClassName  = "System"
	IntegerClassName = "Integer"
	StringClassName  = "String"
	MathClassName    = "Math"
	ThreadClassName  = "Thread"
	ObjectClassName  = "Object"
)

// Exception class names raised by the runtime
const (
	ExceptionName            = "Exception"
	RuntimeExceptionName     = "RuntimeException"
	ArithmeticExceptionName  = "ArithmeticException"
	IndexOutOfBoundsName     = "ArrayIndexOutOfBoundsException"
	NullPointerExceptionName = "NullPointerException"
	NumberFormatName         = "NumberFormatException"
	ClassCastExceptionName   = "ClassCastException"
	NegativeArraySizeName    = "NegativeArraySizeException"
	StackOverflowErrorName   = "StackOverflowError"
	IllegalStateName         = "IllegalStateException"
	IllegalArgumentName      = "IllegalArgumentException"
	UnsupportedOperationName = "UnsupportedOperationException"
)

// ThrowableClasses can be constructed with `new C(message)` and thrown.
var ThrowableClasses = map[string]bool{
	ExceptionName:            true,
	RuntimeExceptionName:     true,
	ArithmeticExceptionName:  true,
	IndexOutOfBoundsName:     true,
	NullPointerExceptionName: true,
	NumberFormatName:         true,
	ClassCastExceptionName:   true,
	NegativeArraySizeName:    true,
	StackOverflowErrorName:   true,
	IllegalStateName:         true,
	IllegalArgumentName:      true,
	UnsupportedOperationName: true,
}

// BuiltinTypes are type names that never refer to a user class.
var BuiltinTypes = map[string]bool{
	"int":     true,
	"boolean": true,
	"void":    true,
	"var":     true,
	"String":  true,
	"Object":  true,
}

// Native describes an intrinsic static method.
type Native struct {
	MinArgs int
	MaxArgs int
}

// Natives is keyed by the fully spelled call, e.g. "System.out.println".
var Natives = map[string]Native{
	"System.out.println":       {0, 1},
	"System.out.print":         {1, 1},
	"System.out.flush":         {0, 0},
	"System.err.println":       {0, 1},
	"System.err.print":         {1, 1},
	"System.err.flush":         {0, 0},
	"System.in.readLine":       {0, 0},
	"System.in.read":           {0, 0},
	"System.currentTimeMillis": {0, 0},
	"System.exit":              {1, 1},
	"Integer.parseInt":         {1, 1},
	"Integer.toString":         {1, 1},
	"String.valueOf":           {1, 1},
	"Math.abs":                 {1, 1},
	"Math.max":                 {2, 2},
	"Math.min":                 {2, 2},
	"Thread.sleep":             {1, 1},
	"Thread.start":             {1, 1},
}

// NativeObjects are the static stream fields of System.
var NativeObjects = map[string]bool{
	"System.out": true,
	"System.err": true,
	"System.in":  true,
}

// VirtualMethods lists instance methods available on strings and exceptions.
var VirtualMethods = map[string]Native{
	"length":      {0, 0},
	"isEmpty":     {0, 0},
	"equals":      {1, 1},
	"trim":        {0, 0},
	"toUpperCase": {0, 0},
	"toLowerCase": {0, 0},
	"substring":   {1, 2},
	"charAt":      {1, 1},
	"contains":    {1, 1},
	"indexOf":     {1, 1},
	"startsWith":  {1, 1},
	"endsWith":    {1, 1},
	"toString":    {0, 0},
	"getMessage":  {0, 0},
}

// MaxLocals bounds the local slots of a single method (u8 operand).
const MaxLocals = 256
