package chassis

import "math"

const (
	WheelDiameterIn float64 = 4
	WheelCircumIn           = WheelDiameterIn * math.Pi

	// Centre-to-centre distances between the module pivots.
	TrackWidthIn = 21.5
	WheelbaseIn  = 23.5

	// Sensor counts per steering/drive sensor revolution (mag encoder).
	CountsPerRev = 4096
	// Sensor revolutions per wheel revolution.
	DriveGearRatio = 6.67
)

var (
	BotCentreToWheelCentre  = math.Sqrt(math.Pow(TrackWidthIn/2, 2) + math.Pow(WheelbaseIn/2, 2))
	WheelTurningCircleDiaIn = math.Pi * BotCentreToWheelCentre * 2
)

// Geometry is the size of the rectangle the module pivots sit on.  Units only
// need to be consistent with each other.
type Geometry struct {
	TrackWidth float64 `yaml:"track_width_in"`
	Wheelbase  float64 `yaml:"wheelbase_in"`
}

func DefaultGeometry() Geometry {
	return Geometry{
		TrackWidth: TrackWidthIn,
		Wheelbase:  WheelbaseIn,
	}
}

// Offset returns the position of the role's pivot relative to the chassis
// centre.  +X is to the right of the robot, +Y is forwards.
func (g Geometry) Offset(r Role) (x, y float64) {
	sx, sy := r.signs()
	return sx * g.TrackWidth / 2, sy * g.Wheelbase / 2
}

// Radius is the distance from the chassis centre to any pivot.
func (g Geometry) Radius() float64 {
	return math.Hypot(g.TrackWidth/2, g.Wheelbase/2)
}
