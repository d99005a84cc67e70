// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Window      WindowConfig      `yaml:"window"`
	Camera      CameraConfig      `yaml:"camera"`
	Assets      AssetsConfig      `yaml:"assets"`
	Interaction InteractionConfig `yaml:"interaction"`
	Gizmo       GizmoConfig       `yaml:"gizmo"`
	Scene       SceneConfig       `yaml:"scene"`
	Lighting    LightingConfig    `yaml:"lighting"`
	Debug       DebugConfig       `yaml:"debug"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// CameraConfig holds orbit camera settings.
type CameraConfig struct {
	FOV         float32    `yaml:"fov"` // degrees
	Near        float32    `yaml:"near"`
	Far         float32    `yaml:"far"`
	Distance    float32    `yaml:"distance"`
	MinDistance float32    `yaml:"min_distance"`
	MaxDistance float32    `yaml:"max_distance"`
	Target      [3]float32 `yaml:"target"`
	Damping     float32    `yaml:"damping"`
}

// AssetsConfig describes where assets come from and how they are loaded.
type AssetsConfig struct {
	Root        string   `yaml:"root"`         // Filesystem root for relative sources
	Archives    []string `yaml:"archives"`     // GRF archives mounted for grf:// sources
	Manifest    string   `yaml:"manifest"`     // Asset manifest (YAML)
	Concurrency int      `yaml:"concurrency"`  // Max loads in flight, 0 = unbounded
	DecoderPath string   `yaml:"decoder_path"` // Compressed-geometry decoder location
}

// InteractionConfig holds default click feedback settings.
type InteractionConfig struct {
	Bounce      bool          `yaml:"bounce"`
	BounceScale float32       `yaml:"bounce_scale"`
	Duration    time.Duration `yaml:"duration"`
	Ease        string        `yaml:"ease"`
}

// GizmoConfig holds transform gizmo defaults.
type GizmoConfig struct {
	Mode            string  `yaml:"mode"`  // translate, rotate, scale
	Space           string  `yaml:"space"` // local, world
	Size            float32 `yaml:"size"`
	TranslationSnap float32 `yaml:"translation_snap"`
	RotationSnapDeg float32 `yaml:"rotation_snap_deg"`
	ScaleSnap       float32 `yaml:"scale_snap"`
}

// SceneConfig places loaded models. With no objects listed every model is
// placed, dressed by naming convention and made interactive.
type SceneConfig struct {
	Objects []ObjectConfig `yaml:"objects"`
}

// ObjectConfig places one model resource.
type ObjectConfig struct {
	Model       string `yaml:"model"`
	Texture     string `yaml:"texture"` // texture or video resource applied to every mesh
	Interactive bool   `yaml:"interactive"`
}

// LightingConfig holds the key light. Strength 0 shows textures as baked.
type LightingConfig struct {
	SunAzimuth   float32 `yaml:"sun_azimuth"`   // degrees
	SunElevation float32 `yaml:"sun_elevation"` // degrees
	Strength     float32 `yaml:"strength"`
}

// DebugConfig holds debug overlays and captures.
type DebugConfig struct {
	ShowBounds    bool   `yaml:"show_bounds"` // Outline the object the gizmo is attached to
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "roomview",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Camera: CameraConfig{
			FOV:         45,
			Near:        0.1,
			Far:         200,
			Distance:    18,
			MinDistance: 4,
			MaxDistance: 40,
			Target:      [3]float32{0, 2, 0},
			Damping:     0.1,
		},
		Assets: AssetsConfig{
			Root:        "assets",
			Manifest:    "assets/manifest.yaml",
			Concurrency: 4,
			DecoderPath: "draco/",
		},
		Interaction: InteractionConfig{
			Bounce:      true,
			BounceScale: 1.15,
			Duration:    150 * time.Millisecond,
			Ease:        "back-out-strong",
		},
		Gizmo: GizmoConfig{
			Mode:  "translate",
			Space: "local",
			Size:  1,
		},
		Lighting: LightingConfig{
			SunAzimuth:   45,
			SunElevation: 60,
			Strength:     0.25,
		},
		Debug: DebugConfig{
			ShowBounds:    true,
			ScreenshotDir: "screenshots",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
