package lighting

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/vertexlight/pkg/math"
)

// DirectionFromAngles converts longitude/latitude in degrees to a unit direction.
// Longitude is rotation around the Y axis (0-360), latitude is elevation from
// the horizon (-90 to 90).
func DirectionFromAngles(longitude, latitude float32) math.Vec3 {
	lonRad := longitude * math32.Pi / 180
	latRad := latitude * math32.Pi / 180

	return math.Vec3{
		X: math32.Cos(latRad) * math32.Sin(lonRad),
		Y: math32.Sin(latRad),
		Z: math32.Cos(latRad) * math32.Cos(lonRad),
	}
}

// OrientationFromAngles returns the emitter orientation whose forward axis
// points along DirectionFromAngles(longitude, latitude).
func OrientationFromAngles(longitude, latitude float32) math.Quat {
	return math.QuatFromTo(LocalForward, DirectionFromAngles(longitude, latitude))
}

// OrientationToward returns the orientation pointing the emitter at target.
func OrientationToward(position, target math.Vec3) math.Quat {
	return math.QuatFromTo(LocalForward, target.Sub(position))
}
