package camera

import "github.com/Carmen-Shannon/oxyframe/common"

// CameraController defines an orbit controller. The camera position lives on a sphere
// around a target point and is recomputed whenever the spherical coordinates change.
type CameraController interface {
	// Position returns the current camera world position.
	Position() common.Vec3

	// Target returns the current look-at/pivot point.
	Target() common.Vec3

	// SetTarget moves the pivot point. The camera keeps its spherical offset.
	//
	// Parameters:
	//   - target: the new pivot point
	SetTarget(target common.Vec3)

	// Radius returns the distance from the target.
	Radius() float32

	// SetRadius sets the orbit radius, clamped to the radius bounds.
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around the Y axis in radians.
	Azimuth() float32

	// SetAzimuth sets the horizontal angle in radians.
	SetAzimuth(azimuth float32)

	// Elevation returns the vertical angle from the horizontal plane in radians.
	Elevation() float32

	// SetElevation sets the vertical angle, clamped to the elevation bounds.
	SetElevation(elevation float32)

	// OrbitLeft rotates the camera left around the target by one orbit step.
	OrbitLeft()

	// OrbitRight rotates the camera right around the target by one orbit step.
	OrbitRight()

	// OrbitUp raises the camera by one orbit step.
	OrbitUp()

	// OrbitDown lowers the camera by one orbit step.
	OrbitDown()

	// Orbit applies a mouse drag, scaled by the mouse sensitivity.
	//
	// Parameters:
	//   - dx: horizontal cursor delta in pixels
	//   - dy: vertical cursor delta in pixels
	Orbit(dx, dy float32)

	// Zoom moves the camera toward (positive delta) or away from the target.
	//
	// Parameters:
	//   - delta: scroll amount, scaled by the zoom speed
	Zoom(delta float32)
}
