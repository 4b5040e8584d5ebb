package vm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name: "arithmetic",
			source: `class Main {
    static void main(String[] args) {
        int a = 7;
        int b = 2;
        System.out.println(a + b * 3);
        System.out.println((a + b) * 3);
        System.out.println(a / b);
        System.out.println(a % b);
        System.out.println(-a / b);
        System.out.println("sum=" + a + b);
        System.out.println(a + b + "!");
    }
}`,
			expected: "13\n27\n3\n1\n-3\nsum=72\n9!\n",
		},
		{
			name: "loops",
			source: `class Main {
    static void main(String[] args) {
        int total = 0;
        for (int i = 0; i < 10; i++) {
            if (i % 2 == 0) continue;
            if (i > 7) break;
            total += i;
        }
        System.out.println(total);
        int n = 0;
        while (true) {
            n++;
            if (n == 5) break;
        }
        System.out.println(n);
        boolean ok = n > 3 && n < 10 || false;
        System.out.println(ok);
        System.out.println(!ok || n != 5);
    }
}`,
			expected: "16\n5\ntrue\nfalse\n",
		},
		{
			name: "recursion and statics",
			source: `class Main {
    static int calls = 0;
    static String greeting = "hi " + 1;

    static int fib(int n) {
        calls++;
        if (n < 2) return n;
        return fib(n - 1) + fib(n - 2);
    }

    static void main(String[] args) {
        System.out.println(fib(10));
        System.out.println(calls);
        System.out.println(greeting);
    }
}`,
			expected: "55\n177\nhi 1\n",
		},
		{
			name: "arrays",
			source: `class Main {
    static void main(String[] args) {
        int[] xs = new int[5];
        for (int i = 0; i < xs.length; i++) {
            xs[i] = i * i;
        }
        xs[2] += 10;
        int sum = 0;
        for (int i = 0; i < xs.length; i++) sum += xs[i];
        System.out.println(sum);
        String[] names = new String[2];
        System.out.println(names[0]);
        System.out.println(args.length);
    }
}`,
			expected: "40\nnull\n0\n",
		},
		{
			name: "string methods",
			source: `class Main {
    static void main(String[] args) {
        String raw = "  Hello World  ";
        String s = raw.trim();
        System.out.println(s.length());
        System.out.println(s.toUpperCase());
        System.out.println(s.substring(6));
        System.out.println(s.substring(0, 5));
        System.out.println(s.indexOf("o"));
        System.out.println(s.charAt(1));
        System.out.println(s.contains("lo W"));
        System.out.println(s.equals("Hello World"));
        System.out.println(s == "Hello World");
    }
}`,
			expected: "11\nHELLO WORLD\nWorld\nHello\n4\ne\ntrue\ntrue\ntrue\n",
		},
		{
			name: "natives",
			source: `class Main {
    static void main(String[] args) {
        System.out.println(Math.max(3, 9) - Math.min(3, 9));
        System.out.println(Math.abs(-4));
        System.out.println(Integer.parseInt("41") + 1);
        System.out.println(String.valueOf(true) + Integer.toString(5));
        System.out.print("no newline");
        System.out.println();
        System.err.println("to stderr");
    }
}`,
			expected: "6\n4\n42\ntrue5\nno newline\n",
		},
		{
			name: "void method falls off the end",
			source: `class Main {
    static int counter;

    static void bump(int by) {
        if (by < 0) return;
        counter += by;
    }

    static void main(String[] args) {
        bump(2);
        bump(-1);
        bump(3);
        System.out.println(counter);
    }
}`,
			expected: "5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runSource(t, tt.source)
			require.NoError(t, res.err)
			require.Equal(t, tt.expected, res.stdout)
		})
	}
}

func TestExecuteWritesStderr(t *testing.T) {
	res := runSource(t, `class Main {
    static void main(String[] args) {
        System.err.print("e");
        System.err.println("rr");
    }
}`)
	require.NoError(t, res.err)
	require.Empty(t, res.stdout)
	require.Equal(t, "err\n", res.stderr)
}

func TestExecuteAcrossPackages(t *testing.T) {
	prog := compileProgram(t, map[string]string{
		"app/Util.jot": `package app;

class Util {
    static int base = 20;

    static int twice(int x) {
        return x * 2 + base - 20;
    }
}`,
		"app/Main.jot": `package app;

class Main {
    static void main(String[] args) {
        System.out.println(Util.twice(21));
    }
}`,
		"Other.jot": `import app.Util;

class Other {
    static void main(String[] args) {
        System.out.println(Util.twice(1));
    }
}`,
	})

	res := runMain(t, context.Background(), prog, "app.Main", "")
	require.NoError(t, res.err)
	require.Equal(t, "42\n", res.stdout)

	res = runMain(t, context.Background(), prog, "Other", "")
	require.NoError(t, res.err)
	require.Equal(t, "2\n", res.stdout)
}

func TestRuntimeExceptions(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		class   string
		message string
	}{
		{"divide by zero", `int z = 0; System.out.println(1 / z);`, "ArithmeticException", "/ by zero"},
		{"modulo by zero", `int z = 0; System.out.println(1 % z);`, "ArithmeticException", "/ by zero"},
		{"index out of bounds", `int[] xs = new int[3]; xs[3] = 1;`, "ArrayIndexOutOfBoundsException", "Index 3 out of bounds for length 3"},
		{"negative index", `int[] xs = new int[3]; System.out.println(xs[-1]);`, "ArrayIndexOutOfBoundsException", "Index -1 out of bounds for length 3"},
		{"null receiver", `String s = null; System.out.println(s.length());`, "NullPointerException", `Cannot invoke "length()" because value is null`},
		{"bad number", `System.out.println(Integer.parseInt("x1"));`, "NumberFormatException", `For input string: "x1"`},
		{"thrown", `throw new IllegalStateException("boom");`, "IllegalStateException", "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runSource(t, "class Main {\n    static void main(String[] args) {\n        "+tt.body+"\n    }\n}")
			var exc *Exception
			require.ErrorAs(t, res.err, &exc)
			require.Equal(t, tt.class, exc.Class)
			require.Equal(t, tt.message, exc.Message)
			require.NotEmpty(t, exc.Trace)
			require.Equal(t, StackFrame{Class: "Main", Method: "main", File: "Main.jot", Line: 3}, exc.Trace[0])
		})
	}
}

func TestExceptionStackTrace(t *testing.T) {
	res := runSource(t, `class Main {
    static void fail(String why) {
        throw new RuntimeException(why);
    }

    static void main(String[] args) {
        var e = new IllegalArgumentException("first");
        System.out.println(e.getMessage());
        fail("second");
    }
}`)
	require.Equal(t, "first\n", res.stdout)

	var exc *Exception
	require.ErrorAs(t, res.err, &exc)
	require.Equal(t, "RuntimeException: second", exc.Error())
	require.Equal(t,
		"RuntimeException: second\n\tat Main.fail(Main.jot:3)\n\tat Main.main(Main.jot:9)",
		exc.StackTrace())
}

func TestExceptionWithoutMessage(t *testing.T) {
	res := runSource(t, `class Main {
    static void main(String[] args) {
        throw new UnsupportedOperationException();
    }
}`)
	var exc *Exception
	require.ErrorAs(t, res.err, &exc)
	require.False(t, exc.HasMessage)
	require.Equal(t, "UnsupportedOperationException", exc.String())
}

func TestStackOverflow(t *testing.T) {
	res := runSource(t, `class Main {
    static int down(int n) {
        return down(n + 1);
    }

    static void main(String[] args) {
        down(0);
    }
}`)
	var exc *Exception
	require.ErrorAs(t, res.err, &exc)
	require.Equal(t, "StackOverflowError", exc.Class)
	require.LessOrEqual(t, len(exc.Trace), maxTraceDepth)
}

func TestSystemExit(t *testing.T) {
	res := runSource(t, `class Main {
    static void main(String[] args) {
        System.out.println("before");
        System.exit(3);
        System.out.println("after");
    }
}`)
	var exit *ExitError
	require.ErrorAs(t, res.err, &exit)
	require.Equal(t, 3, exit.Code)
	require.Equal(t, "before\n", res.stdout)
}

func TestReadStdin(t *testing.T) {
	prog := compileProgram(t, map[string]string{"Main.jot": `class Main {
    static void main(String[] args) {
        String name = System.in.readLine();
        int n = Integer.parseInt(System.in.readLine());
        System.out.println("hello " + name + " " + (n + 1));
        System.out.println(System.in.readLine());
        System.out.println(System.in.read());
    }
}`})

	res := runMain(t, context.Background(), prog, "Main", "alice\r\n42\n")
	require.NoError(t, res.err)
	require.Equal(t, "hello alice 43\nnull\n-1\n", res.stdout)
}

func TestThreadStart(t *testing.T) {
	res := runSource(t, `class Main {
    static boolean done = false;

    static void worker() {
        System.out.println("worker");
        done = true;
    }

    static void main(String[] args) {
        Thread.start(Main::worker);
        while (!done) {
            Thread.sleep(1);
        }
        System.out.println("main");
    }
}`)
	require.NoError(t, res.err)
	require.Equal(t, "worker\nmain\n", res.stdout)
}

func TestThreadUncaughtException(t *testing.T) {
	res := runSource(t, `class Main {
    static boolean started = false;

    static void worker() {
        started = true;
        throw new IllegalStateException("in worker");
    }

    static void main(String[] args) {
        Thread.start(Main::worker);
        while (!started) {
            Thread.sleep(1);
        }
        Thread.sleep(20);
    }
}`)
	require.NoError(t, res.err)
	require.Contains(t, res.stderr, `Exception in thread "Thread-0" IllegalStateException: in worker`)
	require.Contains(t, res.stderr, "\tat Main.worker(Main.jot:6)")
}

func TestStaticsArePerRuntime(t *testing.T) {
	prog := compileProgram(t, map[string]string{"Main.jot": `class Main {
    static int runs;

    static void main(String[] args) {
        runs++;
        System.out.println(runs);
    }
}`})

	for i := 0; i < 2; i++ {
		res := runMain(t, context.Background(), prog, "Main", "")
		require.NoError(t, res.err)
		require.Equal(t, "1\n", res.stdout)
	}
}

func TestRuntimeStatic(t *testing.T) {
	prog := compileProgram(t, map[string]string{"Main.jot": `class Main {
    static String label = "x" + 2;
    static int[] slots = new int[4];

    static void main(String[] args) {}
}`})

	rt := NewRuntime(context.Background(), prog, IO{})
	require.NoError(t, rt.Initialize())

	v, ok := rt.Static("Main", "label")
	require.True(t, ok)
	require.Equal(t, StringVal("x2"), v)

	v, ok = rt.Static("Main", "slots")
	require.True(t, ok)
	arr, isArray := v.Obj.(*Array)
	require.True(t, isArray)
	require.Equal(t, 4, arr.Len())

	_, ok = rt.Static("Main", "missing")
	require.False(t, ok)
	_, ok = rt.Static("Nope", "label")
	require.False(t, ok)
}

func TestCancellation(t *testing.T) {
	prog := compileProgram(t, map[string]string{"Main.jot": `class Main {
    static void main(String[] args) {
        int n = 0;
        while (true) {
            n++;
        }
    }
}`})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := runMain(t, ctx, prog, "Main", "")
	require.True(t, errors.Is(res.err, context.DeadlineExceeded), "got %v", res.err)
}

func TestCancellationInterruptsSleep(t *testing.T) {
	prog := compileProgram(t, map[string]string{"Main.jot": `class Main {
    static void main(String[] args) {
        Thread.sleep(60000);
    }
}`})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	start := time.Now()
	res := runMain(t, ctx, prog, "Main", "")
	require.ErrorIs(t, res.err, context.Canceled)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestFindMain(t *testing.T) {
	prog := compileProgram(t, map[string]string{"Main.jot": `class Main {
    static void main(String[] args) {}
}

class Helper {
    static int main(String[] args) { return 0; }
}

class Plain {
    static void run() {}
}`})

	_, _, ok := FindMain(prog, "Main")
	require.True(t, ok)
	_, _, ok = FindMain(prog, "Helper")
	require.False(t, ok)
	_, _, ok = FindMain(prog, "Plain")
	require.False(t, ok)
	_, _, ok = FindMain(prog, "Missing")
	require.False(t, ok)
}
