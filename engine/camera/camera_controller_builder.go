package camera

import "github.com/Carmen-Shannon/oxyframe/common"

// CameraControllerOption configures an orbit controller in NewCameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithRadius sets the initial distance from the target.
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radius = radius
	}
}

// WithAzimuth sets the initial angle around the Y axis, in radians from +Z.
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.azimuth = azimuth
	}
}

// WithElevation sets the initial angle above the horizontal plane, in radians.
func WithElevation(elevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.elevation = elevation
	}
}

// WithTarget sets the point the camera orbits and looks at.
func WithTarget(target common.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = target
	}
}

// WithRadiusBounds limits zooming.
//
// Parameters:
//   - min: closest allowed distance to the target
//   - max: farthest allowed distance to the target
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithRadiusBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minRadius, cc.maxRadius = min, max
	}
}

// WithElevationBounds limits vertical orbiting.
//
// Parameters:
//   - min: lowest elevation in radians, above 0 keeps the camera off the ground plane
//   - max: highest elevation in radians, below π/2 keeps the view matrix defined
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithElevationBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minElevation, cc.maxElevation = min, max
	}
}

// WithOrbitSpeed sets the step, in radians, of OrbitLeft, OrbitRight, OrbitUp and OrbitDown.
func WithOrbitSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orbitSpeed = speed
	}
}

// WithMouseSensitivity sets the radians Orbit turns per pixel of drag.
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the distance Zoom moves per unit of scroll.
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.zoomSpeed = speed
	}
}
