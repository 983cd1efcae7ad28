package solver

import (
	"errors"
	"math"

	"github.com/skybeacon/gnssgo/pkg/ephemeris"
	"github.com/skybeacon/gnssgo/pkg/geodesy"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/linalg"
	"github.com/skybeacon/gnssgo/pkg/models"
	"github.com/skybeacon/gnssgo/pkg/navstore"
	"github.com/skybeacon/gnssgo/pkg/obs"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

// nxParam is the number of estimated position-fix parameters: 3
// position components plus one receiver clock bias per time system
// (GPS-anchored, GLONASS, Galileo, BDS, NavIC), mirroring the teacher's
// NXParam.
const nxParam = 8

// maxItr bounds the position/velocity least-squares iteration count.
const maxItr = 10

const (
	errTrop  = 3.0             // troposphere-off Std (m)
	errSaas  = 0.3             // Saastamoinen model error Std (m)
	errBrdcI = 0.5             // broadcast ionosphere model error factor
	errIonOff = 5.0            // ionosphere-off Std (m)
	relHumi  = 0.7             // relative humidity for Saastamoinen
	minEl    = 5.0 * math.Pi / 180.0
)

// ErrLackOfSats is returned when an epoch does not carry enough usable
// measurements to solve for all nxParam parameters.
var ErrLackOfSats = errors.New("solver: lack of valid satellites")

// ErrDivergent is returned when the least-squares iteration does not
// converge within the iteration budget.
var ErrDivergent = errors.New("solver: iteration divergent")

// ErrValidation is returned when a converged fix fails chi-square or
// GDOP validation.
type ErrValidation struct{ Msg string }

func (e *ErrValidation) Error() string { return e.Msg }

// varianceErr returns the elevation-dependent pseudorange measurement
// error variance (m^2), the Go port of the teacher's VarianceErr
// extended with the SNR-relative and receiver-std terms: a
// baseline-independent term, an elevation-dependent term, a term that
// grows as the rover's C/N0 falls below SNRMax, and a term driven by
// the receiver's own reported pseudorange std (when the decoder
// surfaces one), all scaled by a per-system error factor and tripled
// for the iono-free combination.
func varianceErr(opt *Options, el, snr, pstd float64, sys satid.System) float64 {
	var efact float64
	switch sys {
	case satid.SysGLO:
		efact = 1.5
	case satid.SysSBS:
		efact = 3.0
	default:
		efact = 1.0
	}
	if el < minEl {
		el = minEl
	}
	varr := sqr(opt.ErrFactors[0]) * (sqr(opt.ErrFactors[1]) + sqr(opt.ErrFactors[2])/math.Sin(el))
	if d := opt.ErrFactors[3]; d != 0 && snr > 0 {
		varr += sqr(d) * math.Pow(10, 0.1*math.Max(opt.SNRMax-snr, 0))
	}
	if e := opt.RcvStdFactor; e != 0 && pstd > 0 {
		varr += sqr(e) * sqr(0.01*math.Pow(2, pstd+5))
	}
	if opt.IonoOpt == IonoIFLC {
		varr *= 9.0
	}
	return sqr(efact) * varr
}

// ionoCorr evaluates the broadcast/off ionospheric delay and its
// variance for one satellite line of sight, the Go port of the
// teacher's Nav.IonoCorr restricted to the broadcast Klobuchar model
// (no SBAS/IONEX TEC model is carried by this module).
func ionoCorr(store *navstore.Store, t gtime.Time, sys satid.System, pos3 [3]float64, azel [2]float64, opt IonoOpt) (ion, vari float64) {
	if opt == IonoOff {
		return 0, sqr(errIonOff)
	}
	ionCoef := store.Klobuchar(sys)
	pos := [2]float64{pos3[0], pos3[1]}
	_, tow := t.ToGPST()
	ion = models.IonModel(tow, ionCoef, pos, azel, pos3[2])
	vari = sqr(ion * errBrdcI)
	return ion, vari
}

// tropoCorr evaluates the Saastamoinen tropospheric delay and its
// variance, the Go port of the teacher's Nav.TropCorr.
func tropoCorr(pos3 [3]float64, azel [2]float64, opt TropoOpt) (trp, vari float64) {
	if opt == TropoOff {
		return 0, sqr(errTrop)
	}
	pos := [2]float64{pos3[0], pos3[1]}
	trp = models.TropModel(pos, azel, pos3[2], relHumi)
	vari = sqr(errSaas / (math.Sin(azel[1]) + 0.1))
	return trp, vari
}

// prange forms the code-bias-corrected pseudorange and its a-priori
// variance, the Go port of the teacher's Prange: single-frequency TGD
// correction, or the dual-frequency iono-free combination when
// opt.IonoOpt is IonoIFLC.
func prange(d *obs.Data, store *navstore.Store, t gtime.Time, opt *Options) (p, vari float64, ok bool) {
	sys, _ := satid.SatSys(d.Sat)
	p1, code1 := d.P[0], d.Code[0]
	var p2 float64
	var code2 uint8
	if d.Code[1] != 0 {
		p2, code2 = d.P[1], d.Code[1]
	} else if d.Code[2] != 0 {
		p2, code2 = d.P[2], d.Code[2]
	}
	if p1 == 0 || (opt.IonoOpt == IonoIFLC && p2 == 0) {
		return 0, 0, false
	}
	tgd := groupDelay(store, d.Sat, t)
	galFNAV := ephemeris.GetSelEph(satid.SysGAL) == 2
	if opt.IonoOpt == IonoIFLC {
		pIF, ok := models.IonoFreeCombo(sys, p1, p2, code1, code2, tgd, galFNAV)
		return pIF, 0, ok
	}
	p, vari = models.SingleFreqCorrected(sys, p1, code1, tgd, galFNAV)
	return p, vari, true
}

// satPositions resolves every observation's transmit-time satellite
// state, the per-epoch front end the teacher's Nav.SatPoss performs
// before EstimatePos.
func satPositions(store *navstore.Store, recvTime gtime.Time, obsList []obs.Data, opt *Options) []SatState {
	out := make([]SatState, len(obsList))
	for i := range obsList {
		st, ok := TransmitState(store, obsList[i].Sat, recvTime, obsList[i].P[0], opt.SatEph)
		if !ok {
			out[i] = SatState{Health: -1}
			continue
		}
		out[i] = st
	}
	return out
}

// residuals forms the weighted pseudorange residual vector v and design
// matrix h (nxParam columns, row-major-by-measurement storage expected
// by linalg.LSQ's transposed-A convention) at the current estimate x,
// the Go port of the teacher's Residuals. Returns the residual count nv
// and azel/vsat/resp per-observation outputs.
func residuals(iter int, obsList []obs.Data, states []SatState, store *navstore.Store, x []float64, opt *Options,
	azel [][2]float64, vsat []bool, resp []float64) (v, h, vr []float64, nv int) {

	n := len(obsList)
	v = linalg.Mat(n+nxParam-3, 1)
	h = linalg.Mat(nxParam, n+nxParam-3)
	vr = linalg.Mat(n+nxParam-3, 1)

	var rr [3]float64
	copy(rr[:], x[:3])
	dtr := x[3]
	pos := geodesy.ECEF2Geodetic(rr)

	var mask [nxParam - 3]bool

	for i := range obsList {
		vsat[i] = false
		azel[i] = [2]float64{}
		resp[i] = 0

		d := &obsList[i]
		sys, _ := satid.SatSys(d.Sat)
		if sys == satid.SysNone {
			continue
		}
		if i < n-1 && d.Sat == obsList[i+1].Sat {
			continue // duplicated observation
		}
		st := states[i]
		if excludeSatellite(d.Sat, sys, st.Var, st.Health, opt) {
			continue
		}
		r, e := geodesy.GeoDist(st.Pos, rr)
		if r <= 0 {
			continue
		}

		var dion, vion, dtrp, vtrp float64
		if iter > 0 {
			az, el := geodesy.SatAzEl(pos, e)
			azel[i] = [2]float64{az, el}
			if el < opt.ElevMask {
				continue
			}
			dion, vion = ionoCorr(store, d.Time, sys, pos, azel[i], opt.IonoOpt)
			freq := satid.FreqOf(sys, d.Code[0], 0)
			if freq == 0 {
				continue
			}
			dion, vion = models.RescaleFreq(dion, vion, satid.Freq1, freq)
			dtrp, vtrp = tropoCorr(pos, azel[i], opt.TropoOpt)
		}

		p, vmeas, ok := prange(d, store, d.Time, opt)
		if !ok || p == 0 {
			continue
		}

		v[nv] = p - (r + dtr - clight*st.ClkOff + dion + dtrp)
		for j := 0; j < nxParam; j++ {
			h[j+nv*nxParam] = 0
			if j < 3 {
				h[j+nv*nxParam] = -e[j]
			} else if j == 3 {
				h[j+nv*nxParam] = 1
			}
		}
		switch sys {
		case satid.SysGLO:
			v[nv] -= x[4]
			h[4+nv*nxParam] = 1
			mask[1] = true
		case satid.SysGAL:
			v[nv] -= x[5]
			h[5+nv*nxParam] = 1
			mask[2] = true
		case satid.SysBDS:
			v[nv] -= x[6]
			h[6+nv*nxParam] = 1
			mask[3] = true
		case satid.SysIRN:
			v[nv] -= x[7]
			h[7+nv*nxParam] = 1
			mask[4] = true
		default:
			mask[0] = true
		}

		vsat[i] = true
		resp[i] = v[nv]
		vr[nv] = varianceErr(opt, azel[i][1], float64(d.SNR[0]), d.Pstd, sys) + st.Var + vmeas + vion + vtrp
		nv++
	}

	// constrain unobserved time-system offsets to zero so the normal
	// equations stay full rank.
	for i := 0; i < nxParam-3; i++ {
		if mask[i] {
			continue
		}
		v[nv] = 0
		for j := 0; j < nxParam; j++ {
			h[j+nv*nxParam] = 0
			if j == i+3 {
				h[j+nv*nxParam] = 1
			}
		}
		vr[nv] = 0.01
		nv++
	}
	return v[:nv], h[:nv*nxParam], vr[:nv], nv
}

// validate applies chi-square residual and GDOP acceptance tests to a
// converged fix, the Go port of the teacher's ValSol.
func validate(azel [][2]float64, vsat []bool, opt *Options, v []float64, nv int) error {
	vv := linalg.Dot(v, v, len(v))
	if nv > nxParam && vv > chisqr(nv-nxParam-1) {
		return &ErrValidation{Msg: "chi-square error"}
	}
	var used [][2]float64
	for i, ok := range vsat {
		if ok {
			used = append(used, azel[i])
		}
	}
	dop := geodesy.DOP(used, opt.ElevMask)
	if dop[0] <= 0 || dop[0] > opt.MaxGDOP {
		return &ErrValidation{Msg: "gdop error"}
	}
	return nil
}

// estimatePos iterates the weighted least-squares position/clock fix,
// the Go port of the teacher's EstimatePos.
func estimatePos(store *navstore.Store, obsList []obs.Data, states []SatState, opt *Options, sol *obs.Sol) (azel [][2]float64, vsat []bool, resp []float64, err error) {
	n := len(obsList)
	azel = make([][2]float64, n)
	vsat = make([]bool, n)
	resp = make([]float64, n)

	var x [nxParam]float64
	copy(x[:3], sol.Rr[:3])

	for iter := 0; iter < maxItr; iter++ {
		v, h, vr, nv := residuals(iter, obsList, states, store, x[:], opt, azel, vsat, resp)
		if nv < nxParam {
			return azel, vsat, resp, ErrLackOfSats
		}
		for j := 0; j < nv; j++ {
			sig := math.Sqrt(vr[j])
			v[j] /= sig
			for k := 0; k < nxParam; k++ {
				h[k+j*nxParam] /= sig
			}
		}
		var dx [nxParam]float64
		q := linalg.Mat(nxParam, nxParam)
		if e := linalg.LSQ(h, v, nxParam, nv, dx[:], q); e != nil {
			return azel, vsat, resp, e
		}
		for j := 0; j < nxParam; j++ {
			x[j] += dx[j]
		}
		if linalg.Norm(dx[:], nxParam) < 1e-4 {
			sol.Time = obsList[0].Time.Add(-x[3] / clight)
			sol.Dtr[0] = x[3] / clight
			sol.Dtr[1] = x[4] / clight
			sol.Dtr[2] = x[5] / clight
			sol.Dtr[3] = x[6] / clight
			sol.Dtr[4] = x[7] / clight
			copy(sol.Rr[:3], x[:3])
			sol.Rr[3], sol.Rr[4], sol.Rr[5] = 0, 0, 0
			sol.Qr[0] = float32(q[0])
			sol.Qr[1] = float32(q[1+nxParam])
			sol.Qr[2] = float32(q[2+2*nxParam])
			sol.Qr[3] = float32(q[1])
			sol.Qr[4] = float32(q[2+nxParam])
			sol.Qr[5] = float32(q[2])
			ns := 0
			for _, ok := range vsat {
				if ok {
					ns++
				}
			}
			sol.Ns = uint8(ns)
			sol.Age, sol.Ratio = 0, 0

			if verr := validate(azel, vsat, opt, v, nv); verr != nil {
				return azel, vsat, resp, verr
			}
			sol.Stat = obs.QualitySingle
			if opt.SatEph == EphSSRApc || opt.SatEph == EphSSRCom {
				sol.Stat = obs.QualitySBAS
			}
			return azel, vsat, resp, nil
		}
	}
	return azel, vsat, resp, ErrDivergent
}

// raimFDE performs leave-one-out failure detection and exclusion: it
// re-solves the fix once per satellite with that satellite withheld and
// keeps the withheld-satellite solution with the lowest post-fit RMS,
// the Go port of the teacher's RaimFde.
func raimFDE(store *navstore.Store, obsList []obs.Data, states []SatState, opt *Options, sol *obs.Sol) (azel [][2]float64, vsat []bool, resp []float64, ok bool) {
	n := len(obsList)
	bestRMS := 100.0
	var exSat int = -1
	for i := 0; i < n; i++ {
		obsE := make([]obs.Data, 0, n-1)
		stE := make([]SatState, 0, n-1)
		for j := range obsList {
			if j == i {
				continue
			}
			obsE = append(obsE, obsList[j])
			stE = append(stE, states[j])
		}
		var solE obs.Sol
		solE.Rr = sol.Rr
		azelE, vsatE, respE, err := estimatePos(store, obsE, stE, opt, &solE)
		if err != nil {
			continue
		}
		nvsat, rms := 0, 0.0
		for j, v := range vsatE {
			if !v {
				continue
			}
			rms += float64(respE[j]) * float64(respE[j])
			nvsat++
		}
		if nvsat < 5 {
			continue
		}
		rms = math.Sqrt(rms / float64(nvsat))
		if rms > bestRMS {
			continue
		}
		bestRMS = rms
		exSat = i
		*sol = solE
		azel = make([][2]float64, n)
		vsat = make([]bool, n)
		resp = make([]float64, n)
		k := 0
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			azel[j] = azelE[k]
			vsat[j] = vsatE[k]
			resp[j] = respE[k]
			k++
		}
	}
	return azel, vsat, resp, exSat >= 0
}

// residualDop forms the Doppler range-rate residual vector and design
// matrix for velocity estimation at receiver velocity x, the Go port of
// the teacher's ResidualDop.
func residualDop(obsList []obs.Data, states []SatState, rr [3]float64, x [4]float64, azel [][2]float64, vsat []bool, errHz float64) (v, h []float64, nv int) {
	n := len(obsList)
	v = linalg.Mat(n, 1)
	h = linalg.Mat(4, n)
	pos := geodesy.ECEF2Geodetic(rr)

	for i := range obsList {
		d := &obsList[i]
		sys, _ := satid.SatSys(d.Sat)
		freq := satid.FreqOf(sys, d.Code[0], 0)
		st := states[i]
		if d.D[0] == 0 || freq == 0 || !vsat[i] || linalg.Norm(st.Vel[:], 3) <= 0 {
			continue
		}
		cosel := math.Cos(azel[i][1])
		a := [3]float64{math.Sin(azel[i][0]) * cosel, math.Cos(azel[i][0]) * cosel, math.Sin(azel[i][1])}
		e := geodesy.ENU2ECEF(pos, a)

		var vs [3]float64
		for j := 0; j < 3; j++ {
			vs[j] = st.Vel[j] - x[j]
		}
		rate := linalg.Dot(vs[:], e[:], 3) + geodesy.OmegaE/clight*(st.Vel[1]*rr[0]+st.Pos[1]*x[0]-st.Vel[0]*rr[1]-st.Pos[0]*x[1])

		sig := 1.0
		if errHz > 0 {
			sig = errHz * clight / freq
		}
		v[nv] = (-d.D[0]*clight/freq - (rate + x[3] - clight*st.ClkDft)) / sig
		for j := 0; j < 4; j++ {
			h[j+nv*4] = 1.0 / sig
			if j < 3 {
				h[j+nv*4] = -e[j] / sig
			}
		}
		nv++
	}
	return v[:nv], h[:nv*4], nv
}

// estVel iterates the Doppler-based receiver velocity estimate, the Go
// port of the teacher's EstVel.
func estVel(obsList []obs.Data, states []SatState, opt *Options, sol *obs.Sol, azel [][2]float64, vsat []bool) {
	var x [4]float64
	for iter := 0; iter < maxItr; iter++ {
		var rr [3]float64
		copy(rr[:], sol.Rr[:3])
		v, h, nv := residualDop(obsList, states, rr, x, azel, vsat, opt.ErrFactors[4])
		if nv < 4 {
			return
		}
		var dx [4]float64
		q := linalg.Mat(4, 4)
		if linalg.LSQ(h, v, 4, nv, dx[:], q) != nil {
			return
		}
		for j := 0; j < 4; j++ {
			x[j] += dx[j]
		}
		if linalg.Norm(dx[:], 4) < 1e-6 {
			copy(sol.Rr[3:6], x[:3])
			sol.Qv[0] = float32(q[0])
			sol.Qv[1] = float32(q[5])
			sol.Qv[2] = float32(q[10])
			sol.Qv[3] = float32(q[1])
			sol.Qv[4] = float32(q[6])
			sol.Qv[5] = float32(q[2])
			return
		}
	}
}

// PntPos computes a single-epoch position/velocity/clock-bias fix from
// a batch of simultaneous pseudorange and Doppler observations, the Go
// port of the teacher's PntPos: per-satellite transmit-time evaluation,
// weighted least-squares iteration, chi-square/GDOP validation, RAIM-FDE
// fallback, and Doppler velocity estimation.
func PntPos(store *navstore.Store, obsList []obs.Data, opt Options) (obs.Sol, []obs.Status, error) {
	var sol obs.Sol
	sol.Stat = obs.QualityNone
	if len(obsList) == 0 {
		return sol, nil, errors.New("solver: no observation data")
	}
	sol.Time = obsList[0].Time

	states := satPositions(store, sol.Time, obsList, &opt)

	azel, vsat, resp, err := estimatePos(store, obsList, states, &opt, &sol)
	if err != nil && len(obsList) >= 6 && opt.UseRAIM {
		if a, vs, rp, ok := raimFDE(store, obsList, states, &opt, &sol); ok {
			azel, vsat, resp, err = a, vs, rp, nil
		}
	}
	if err != nil {
		return sol, nil, err
	}

	estVel(obsList, states, &opt, &sol, azel, vsat)

	status := make([]obs.Status, len(obsList))
	for i := range obsList {
		status[i].Azel = azel[i]
		if vsat[i] {
			status[i].Vsat[0] = 1
			status[i].Resp[0] = float32(resp[i])
		}
		status[i].Snr[0] = obsList[i].SNR[0]
	}
	return sol, status, nil
}

// chisqr is the 0.1%-significance chi-square table indexed by
// degrees-of-freedom (1-based), the same table the teacher carries in
// common.go for residual validation.
func chisqr(dof int) float64 {
	table := [100]float64{
		10.8, 13.8, 16.3, 18.5, 20.5, 22.5, 24.3, 26.1, 27.9, 29.6,
		31.3, 32.9, 34.5, 36.1, 37.7, 39.3, 40.8, 42.3, 43.8, 45.3,
		46.8, 48.3, 49.7, 51.2, 52.6, 54.1, 55.5, 56.9, 58.3, 59.7,
		61.1, 62.5, 63.9, 65.2, 66.6, 68.0, 69.3, 70.7, 72.1, 73.4,
		74.7, 76.0, 77.3, 78.6, 80.0, 81.3, 82.6, 84.0, 85.4, 86.7,
		88.0, 89.3, 90.6, 91.9, 93.3, 94.7, 96.0, 97.4, 98.7, 100,
		101, 102, 103, 104, 105, 107, 108, 109, 110, 112,
		113, 114, 115, 116, 118, 119, 120, 122, 123, 125,
		126, 127, 128, 129, 131, 132, 133, 134, 135, 137,
		138, 139, 140, 142, 143, 144, 145, 147, 148, 149,
	}
	if dof < 0 {
		dof = 0
	}
	if dof >= len(table) {
		dof = len(table) - 1
	}
	return table[dof]
}
