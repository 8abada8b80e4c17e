package simulate

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/sarbp/core"
	"github.com/signalsfoundry/sarbp/model"
)

// WGS84 ellipsoid, metres.
const (
	wgs84A  = 6378137.0
	wgs84E2 = 6.69437999014e-3
	kmToM   = 1000.0
)

// OrbitTrack propagates a two-line element set with SGP4 and expresses the
// pulse positions in a local east-north-up frame tangent to the ellipsoid
// below the middle pulse. The frame origin lies GroundRange metres to the
// right of the middle pulse's ground point, so the scene is side-looking.
type OrbitTrack struct {
	Line1, Line2 string
	Start        time.Time
	PRI          time.Duration
	GroundRange  float64
}

// Positions implements Track. go-satellite propagates to whole seconds, so
// positions are sampled once per second in ECEF and interpolated with a
// three-point Lagrange polynomial.
func (o OrbitTrack) Positions(pulses int) (model.PlatformTrack, error) {
	if err := o.validate(pulses); err != nil {
		return nil, err
	}
	sat := satellite.TLEToSat(o.Line1, o.Line2, satellite.GravityWGS72)

	epoch := o.Start.UTC().Truncate(time.Second)
	offset := o.Start.UTC().Sub(epoch).Seconds()
	pri := o.PRI.Seconds()
	last := offset + float64(pulses-1)*pri
	nk := int(math.Ceil(last)) + 3

	knots := make([]core.Vec3, nk)
	for k := range knots {
		ecef, _, _ := propagate(sat, epoch.Add(time.Duration(k)*time.Second))
		if !finite(ecef) || ecef.Norm() < wgs84A/2 {
			return nil, fmt.Errorf("%w: SGP4 propagation failed at %s", core.ErrConfiguration, epoch.Add(time.Duration(k)*time.Second).Format(time.RFC3339))
		}
		knots[k] = ecef
	}

	ecef := make([]core.Vec3, pulses)
	for i := range ecef {
		ecef[i] = lagrange3(knots, offset+float64(i)*pri)
	}

	midTime := epoch.Add(time.Duration((offset + float64(pulses/2)*pri) * float64(time.Second)))
	_, eci, gmst := propagate(sat, midTime.Round(time.Second))
	_, _, ll := satellite.ECIToLLA(eci, gmst)
	lat, lon := ll.Latitude, ll.Longitude

	nadir := geodeticToECEF(lat, lon)
	east := core.Vec3{X: -math.Sin(lon), Y: math.Cos(lon)}
	north := core.Vec3{X: -math.Sin(lat) * math.Cos(lon), Y: -math.Sin(lat) * math.Sin(lon), Z: math.Cos(lat)}
	up := core.Vec3{X: math.Cos(lat) * math.Cos(lon), Y: math.Cos(lat) * math.Sin(lon), Z: math.Sin(lat)}

	enu := make([]core.Vec3, pulses)
	for i, p := range ecef {
		d := p.Sub(nadir)
		enu[i] = core.Vec3{X: d.Dot(east), Y: d.Dot(north), Z: d.Dot(up)}
	}

	along := enu[pulses-1].Sub(enu[0])
	along.Z = 0
	if along.Norm() == 0 {
		return nil, fmt.Errorf("%w: orbit track does not move over the aperture", core.ErrConfiguration)
	}
	right := along.Unit().Cross(core.Vec3{Z: 1})
	mid := enu[pulses/2]
	shift := core.Vec3{X: mid.X, Y: mid.Y}.Add(right.Scale(o.GroundRange))

	track := make(model.PlatformTrack, pulses)
	for i, p := range enu {
		q := p.Sub(shift)
		track[i] = model.Position{X: q.X, Y: q.Y, Z: q.Z}
	}
	return track, nil
}

func (o OrbitTrack) validate(pulses int) error {
	if pulses < 2 {
		return fmt.Errorf("%w: an orbit track needs at least 2 pulses, got %d", core.ErrConfiguration, pulses)
	}
	if !validTLELine(o.Line1, '1') || !validTLELine(o.Line2, '2') {
		return fmt.Errorf("%w: malformed two-line element set", core.ErrConfiguration)
	}
	if o.Start.IsZero() {
		return fmt.Errorf("%w: orbit start time is not set", core.ErrConfiguration)
	}
	if o.PRI <= 0 {
		return fmt.Errorf("%w: pulse repetition interval must be positive, got %s", core.ErrConfiguration, o.PRI)
	}
	if !(o.GroundRange > 0) {
		return fmt.Errorf("%w: ground range must be positive, got %v", core.ErrConfiguration, o.GroundRange)
	}
	return nil
}

// validTLELine checks the line number and the fixed 69-column layout that
// the element parser slices into.
func validTLELine(line string, num byte) bool {
	line = strings.TrimRight(line, " \r\n")
	return len(line) == 69 && line[0] == num && line[1] == ' '
}

// propagate returns the ECEF position in metres together with the ECI
// position in kilometres and the sidereal angle at t.
func propagate(sat satellite.Satellite, t time.Time) (core.Vec3, satellite.Vector3, float64) {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	eci, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	ecef := satellite.ECIToECEF(eci, gmst)
	return core.Vec3{X: ecef.X * kmToM, Y: ecef.Y * kmToM, Z: ecef.Z * kmToM}, eci, gmst
}

// lagrange3 interpolates knots (sampled at integer times) at time s using
// the three knots starting at floor(s), clamped to the table.
func lagrange3(knots []core.Vec3, s float64) core.Vec3 {
	k := int(math.Floor(s))
	if k > len(knots)-3 {
		k = len(knots) - 3
	}
	if k < 0 {
		k = 0
	}
	x := s - float64(k)
	l0 := (x - 1) * (x - 2) / 2
	l1 := -x * (x - 2)
	l2 := x * (x - 1) / 2
	return knots[k].Scale(l0).Add(knots[k+1].Scale(l1)).Add(knots[k+2].Scale(l2))
}

func geodeticToECEF(lat, lon float64) core.Vec3 {
	sin := math.Sin(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sin*sin)
	return core.Vec3{
		X: n * math.Cos(lat) * math.Cos(lon),
		Y: n * math.Cos(lat) * math.Sin(lon),
		Z: n * (1 - wgs84E2) * sin,
	}
}

func finite(v core.Vec3) bool {
	for _, x := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
