// Package primes is the work item source for the prime producer/consumer run.
package primes

import "iter"

// IsPrime reports whether n is prime using 6k +/- 1 trial division.
func IsPrime(n int) bool {
	if n <= 1 {
		return false
	}
	if n <= 3 {
		return true
	}
	if n%2 == 0 || n%3 == 0 {
		return false
	}
	for i := 5; i*i <= n; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}

// Seq yields the first count primes in ascending order.
// Primes are computed lazily, so a consumer that stops early stops the search.
func Seq(count int) iter.Seq[int] {
	return func(yield func(int) bool) {
		found := 0
		for n := 2; found < count; n++ {
			if !IsPrime(n) {
				continue
			}
			found++
			if !yield(n) {
				return
			}
		}
	}
}

// First returns the first count primes.
func First(count int) []int {
	if count <= 0 {
		return nil
	}
	out := make([]int, 0, count)
	for p := range Seq(count) {
		out = append(out, p)
	}
	return out
}

// Source generates prime sequences. The zero value is ready to use.
type Source struct{}

// Generate returns a fresh sequence of the first count primes. Deterministic; every call yields the same values.
func (Source) Generate(count int) iter.Seq[int] {
	return Seq(count)
}
