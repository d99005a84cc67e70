package renderer

const meshVertexShader = `#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aUV;

uniform mat4 uViewProj;
uniform mat4 uModel;

out vec3 vNormal;
out vec3 vWorld;
out vec2 vUV;

void main() {
	vec4 world = uModel * vec4(aPos, 1.0);
	vWorld = world.xyz;
	vNormal = mat3(uModel) * aNormal;
	vUV = aUV;
	gl_Position = uViewProj * world;
}
`

// Baked textures already contain lighting. The sun term fades in with
// uSunStrength and a faint rim separates untextured geometry.
const meshFragmentShader = `#version 410 core

in vec3 vNormal;
in vec3 vWorld;
in vec2 vUV;

uniform sampler2D uTexture;
uniform vec3 uEye;
uniform vec3 uSunDir;
uniform float uSunStrength;

out vec4 FragColor;

void main() {
	vec4 base = texture(uTexture, vUV);
	vec3 n = normalize(vNormal);
	vec3 v = normalize(uEye - vWorld);
	float rim = pow(1.0 - max(dot(n, v), 0.0), 3.0) * 0.15;
	float lambert = max(dot(n, normalize(uSunDir)), 0.0);
	float shade = mix(1.0, 0.35 + 0.65 * lambert, uSunStrength);
	FragColor = vec4(base.rgb * shade + rim, base.a);
}
`

const lineVertexShader = `#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aColor;

uniform mat4 uViewProj;

out vec3 vColor;

void main() {
	vColor = aColor;
	gl_Position = uViewProj * vec4(aPos, 1.0);
}
`

const lineFragmentShader = `#version 410 core

in vec3 vColor;
out vec4 FragColor;

void main() {
	FragColor = vec4(vColor, 1.0);
}
`
