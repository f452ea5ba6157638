package fxmath

import "math/big"

// ln2Raw is ln(2) scaled by Scale (0.693147...), the range-reduction base
// shared by LnFixed and ExpFixed so their reductions stay exact inverses of
// one another.
var ln2Raw = big.NewInt(693147)

// taylorTerms bounds the Taylor-series evaluation in both LnFixed and
// ExpFixed. The reduced argument in each case is bounded by roughly
// ln(2)/2 ≈ 0.3466, so 24 terms drive the truncation error well below one
// Scale unit (1e-6) across the supported domain.
const taylorTerms = 24

// ExpFixed computes exp(x) for x expressed in fixed-point, using exact
// range reduction (x = k*ln2 + r with r in [-ln2/2, ln2/2]) followed by a
// Taylor expansion of exp(r) and a final exact power-of-two recombination
// via bit shifting. Deterministic and free of floating point throughout.
func ExpFixed(x Fixed) (Fixed, error) {
	k, r := reduceByLn2(x)

	// exp(r) = sum_{n=0}^{N} r^n / n!
	sum := FromInt64(1)
	term := FromInt64(1)
	for n := int64(1); n <= taylorTerms; n++ {
		var err error
		term, err = CheckedMul(term, r)
		if err != nil {
			return Fixed{}, err
		}
		term = divInt(term, n)
		sum, err = CheckedAdd(sum, term)
		if err != nil {
			return Fixed{}, err
		}
	}

	raw := new(big.Int).Set(sum.v)
	if k >= 0 {
		raw.Lsh(raw, uint(k))
	} else {
		raw.Rsh(raw, uint(-k))
	}
	if !inRange(raw) {
		return Fixed{}, ErrOverflow
	}
	return Fixed{v: raw}, nil
}

// LnFixed computes ln(x) for x > 0 expressed in fixed-point, using exact
// bit-shift range reduction to m*2^e with m in [1,2), an atanh-based series
// for ln(m) (fast convergence near 1), and the exact identity
// ln(x) = ln(m) + e*ln(2).
func LnFixed(x Fixed) (Fixed, error) {
	if x.Sign() <= 0 {
		return Fixed{}, ErrDomain
	}

	m := new(big.Int).Set(x.v)
	e := 0

	// Coarse reduction via bit-length difference, then fine-tune with at
	// most a couple of single-bit adjustments — both steps are exact.
	diff := m.BitLen() - scaleBig.BitLen()
	if diff > 0 {
		m.Rsh(m, uint(diff))
		e += diff
	} else if diff < 0 {
		m.Lsh(m, uint(-diff))
		e += diff
	}
	twoScale := new(big.Int).Mul(scaleBig, two)
	for m.Cmp(scaleBig) < 0 {
		m.Lsh(m, 1)
		e--
	}
	for m.Cmp(twoScale) >= 0 {
		m.Rsh(m, 1)
		e++
	}

	mFixed := Fixed{v: m}
	one := FromInt64(1)
	num, err := CheckedSub(mFixed, one)
	if err != nil {
		return Fixed{}, err
	}
	den, err := CheckedAdd(mFixed, one)
	if err != nil {
		return Fixed{}, err
	}
	u, err := CheckedDiv(num, den)
	if err != nil {
		return Fixed{}, err
	}

	// ln(m) = 2 * (u + u^3/3 + u^5/5 + ...)
	u2, err := CheckedMul(u, u)
	if err != nil {
		return Fixed{}, err
	}
	sum := u
	term := u
	for n := int64(3); n <= 2*taylorTerms+1; n += 2 {
		term, err = CheckedMul(term, u2)
		if err != nil {
			return Fixed{}, err
		}
		contrib := divInt(term, n)
		sum, err = CheckedAdd(sum, contrib)
		if err != nil {
			return Fixed{}, err
		}
	}
	lnm, err := CheckedMul(sum, FromInt64(2))
	if err != nil {
		return Fixed{}, err
	}

	eTerm := new(big.Int).Mul(big.NewInt(int64(e)), ln2Raw)
	raw := new(big.Int).Add(lnm.v, eTerm)
	if !inRange(raw) {
		return Fixed{}, ErrOverflow
	}
	return Fixed{v: raw}, nil
}

// reduceByLn2 splits x into an integer multiple of ln(2) and a bounded
// remainder: x = k*ln2 + r, with r in [-ln2/2, ln2/2]. k is rounded to the
// nearest integer (ties away from zero), keeping the reduction exact given
// the ln2Raw constant.
func reduceByLn2(x Fixed) (int64, Fixed) {
	q, rem := new(big.Int).QuoRem(x.v, ln2Raw, new(big.Int))
	twiceRem := new(big.Int).Lsh(new(big.Int).Abs(rem), 1)
	if twiceRem.Cmp(ln2Raw) >= 0 {
		if rem.Sign() >= 0 {
			q.Add(q, one)
		} else {
			q.Sub(q, one)
		}
	}
	k := q.Int64()
	rRaw := new(big.Int).Sub(x.v, new(big.Int).Mul(q, ln2Raw))
	return k, Fixed{v: rRaw}
}
