package highs

// #cgo LDFLAGS: -lhighs -lstdc++ -lm
// #include <stdlib.h>
// #include <highs_c_api.h>
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"
)

// Model-status values of the HiGHS C API that the adapter distinguishes; any
// other value maps to lpsolver.Other.
const (
	kHighsModelStatusOptimal    = 7
	kHighsModelStatusInfeasible = 8
	kHighsModelStatusUnbounded  = 10
)

// lowLevelSolver wraps the opaque Highs_create() handle, one per owning
// Model (spec.md §5: "one model per owning entity").
type lowLevelSolver struct {
	ptr unsafe.Pointer
}

func newLowLevelSolver() *lowLevelSolver {
	s := &lowLevelSolver{ptr: C.Highs_create()}
	runtime.SetFinalizer(s, func(s *lowLevelSolver) {
		C.Highs_destroy(s.ptr)
	})
	return s
}

func (s *lowLevelSolver) setBoolOption(name string, value bool) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	v := C.HighsInt(0)
	if value {
		v = 1
	}
	if ret := C.Highs_setBoolOptionValue(s.ptr, cname, v); ret != C.kHighsStatusOk {
		return fmt.Errorf("highs: setBoolOption(%s): status %d", name, int(ret))
	}
	return nil
}

// passModel loads the full CSR-sparse problem description in one call,
// mirroring the gohighs reference's PassModel preparation step.
func (s *lowLevelSolver) passModel(
	numCol, numRow int,
	colCost, colLower, colUpper []float64,
	rowLower, rowUpper []float64,
	aStart []int32, aIndex []int32, aValue []float64,
	maximize bool,
) error {
	sense := C.HighsInt(C.kHighsObjSenseMinimize)
	if maximize {
		sense = C.HighsInt(C.kHighsObjSenseMaximize)
	}

	cStart := toHighsInts(aStart)
	cIndex := toHighsInts(aIndex)

	ret := C.Highs_passLp(
		s.ptr,
		C.HighsInt(numCol), C.HighsInt(numRow), C.HighsInt(len(aValue)),
		C.HighsInt(C.kHighsMatrixFormatRowwise),
		sense,
		C.double(0),
		(*C.double)(dptr(colCost)),
		(*C.double)(dptr(colLower)),
		(*C.double)(dptr(colUpper)),
		(*C.double)(dptr(rowLower)),
		(*C.double)(dptr(rowUpper)),
		hptr(cStart),
		hptr(cIndex),
		(*C.double)(dptr(aValue)),
	)
	if ret != C.kHighsStatusOk {
		return fmt.Errorf("highs: passModel: status %d", int(ret))
	}
	return nil
}

// passHessian installs the upper-triangular Q of the quadratic term
// 0.5*x'Qx, in CSR form, mirroring Highs_passHessian.
func (s *lowLevelSolver) passHessian(numCol int, qStart, qIndex []int32, qValue []float64) error {
	cStart := toHighsInts(qStart)
	cIndex := toHighsInts(qIndex)

	ret := C.Highs_passHessian(
		s.ptr,
		C.HighsInt(numCol), C.HighsInt(len(qValue)),
		C.HighsInt(C.kHighsHessianFormatTriangular),
		hptr(cStart),
		hptr(cIndex),
		(*C.double)(dptr(qValue)),
	)
	if ret != C.kHighsStatusOk {
		return fmt.Errorf("highs: passHessian: status %d", int(ret))
	}
	return nil
}

func (s *lowLevelSolver) run() error {
	if ret := C.Highs_run(s.ptr); ret == C.kHighsStatusError {
		return fmt.Errorf("highs: run: internal error")
	}
	return nil
}

func (s *lowLevelSolver) modelStatus() int {
	return int(C.Highs_getModelStatus(s.ptr))
}

func (s *lowLevelSolver) objectiveValue() float64 {
	return float64(C.Highs_getObjectiveValue(s.ptr))
}

func (s *lowLevelSolver) solution(numCol, numRow int) (colValue, colDual, rowValue, rowDual []float64) {
	colValue = make([]float64, numCol)
	colDual = make([]float64, numCol)
	rowValue = make([]float64, numRow)
	rowDual = make([]float64, numRow)

	C.Highs_getSolution(
		s.ptr,
		(*C.double)(dptr(colValue)),
		(*C.double)(dptr(colDual)),
		(*C.double)(dptr(rowValue)),
		(*C.double)(dptr(rowDual)),
	)
	return
}

// dualRay recovers a Farkas certificate of primal infeasibility via the
// dual unbounded ray HiGHS computes on an infeasible basis.
func (s *lowLevelSolver) dualRay(numRow int) []float64 {
	ray := make([]float64, numRow)
	var hasRay C.HighsInt
	C.Highs_getDualRay(s.ptr, &hasRay, (*C.double)(dptr(ray)))
	if hasRay == 0 {
		return nil
	}
	return ray
}

func toHighsInts(s []int32) []C.HighsInt {
	out := make([]C.HighsInt, len(s))
	for i, v := range s {
		out[i] = C.HighsInt(v)
	}
	return out
}

func hptr(s []C.HighsInt) *C.HighsInt {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

func dptr(s []float64) unsafe.Pointer {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Pointer(&s[0])
}
