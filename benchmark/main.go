package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"kiln/asmgen"
	"kiln/evaluator"
)

var engine = flag.String("engine", "eval", "use 'eval' or 'asm'")
var rounds = flag.Int("rounds", 1000, "compilations to time with -engine=asm")

var source = `
(defun fib (x)
  (if (lt x 2)
      x
      (+ (fib (- x 1)) (fib (- x 2)))))
(defun make_adder (n) (lambda (x) (+ x n)))
(defun loop (n acc) (if (eq n 0) acc (loop (- n 1) (+ acc 1))))
(defun main () (println (fib 25) ((make_adder 1) (loop 100000 0))))
`

func main() {
	flag.Parse()
	var duration time.Duration
	var result string

	env := evaluator.New(io.Discard)
	if err := env.ImportSource(source); err != nil {
		fmt.Printf("import error: %s", err)
		return
	}

	if *engine == "asm" {
		c := asmgen.New(env.Symbols())
		start := time.Now()

		var asm string
		for i := 0; i < *rounds; i++ {
			var err error
			asm, err = c.Assemble("main")
			if err != nil {
				fmt.Printf("compile error: %s", err)
				return
			}
		}

		duration = time.Since(start) / time.Duration(*rounds)
		result = fmt.Sprintf("%d bytes", len(asm))
	} else {
		start := time.Now()
		value, err := env.InterpretLine("(fib 25)")
		if err != nil {
			fmt.Printf("eval error: %s", err)
			return
		}
		duration = time.Since(start)
		result = value.String()
	}

	fmt.Printf("engine=%s, result=%s. duration=%s", *engine, result, duration)
}
