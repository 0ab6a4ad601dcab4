//go:build windows

package webgpu

// WGSL compute kernels for the tensor backend, kept as string constants.
//
// Half precision buffers are bound as array<u32>: element i lives in word
// i >> 1, half i & 1 (low half first, matching a little-endian []uint16
// upload). float16 pairs move through pack2x16float/unpack2x16float;
// bfloat16 is the upper half of a float32 bit pattern, decoded with a
// shift and encoded with round-to-nearest-even like tensor.BFloat16Bits.
// Kernels that write half output assign one whole word per invocation, so
// no two invocations touch the same word.

// workgroupSize is the default number of threads per workgroup.
const workgroupSize = 256

// bf16Common holds the bfloat16 helpers shared by the bfloat16 kernels.
const bf16Common = `
fn bf16_load(w: u32, half_idx: u32) -> f32 {
    return bitcast<f32>(((w >> (16u * half_idx)) & 0xFFFFu) << 16u);
}

fn bf16_decode2(w: u32) -> vec2<f32> {
    return vec2<f32>(bitcast<f32>((w & 0xFFFFu) << 16u), bitcast<f32>(w & 0xFFFF0000u));
}

fn bf16_encode(v: f32) -> u32 {
    var bits = bitcast<u32>(v);
    if ((bits & 0x7FFFFFFFu) > 0x7F800000u) {
        return ((bits >> 16u) | 0x0040u) & 0xFFFFu;
    }
    bits = bits + 0x7FFFu + ((bits >> 16u) & 1u);
    return bits >> 16u;
}

fn bf16_encode2(v: vec2<f32>) -> u32 {
    return bf16_encode(v.x) | (bf16_encode(v.y) << 16u);
}
`

// addShader performs element-wise addition: result = a + b.
const addShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] + b[idx];
    }
}
`

// subShader performs element-wise subtraction: result = a - b.
const subShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] - b[idx];
    }
}
`

// mulShader performs element-wise multiplication: result = a * b.
const mulShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] * b[idx];
    }
}
`

// divShader performs element-wise division: result = a / b.
const divShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] / b[idx];
    }
}
`

// addShaderF16 performs element-wise float16 addition, one packed word
// (two elements) per invocation.
const addShaderF16 = `
@group(0) @binding(0) var<storage, read> a: array<u32>;
@group(0) @binding(1) var<storage, read> b: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    result[word] = pack2x16float(unpack2x16float(a[word]) + unpack2x16float(b[word]));
}
`

// subShaderF16 performs element-wise float16 subtraction.
const subShaderF16 = `
@group(0) @binding(0) var<storage, read> a: array<u32>;
@group(0) @binding(1) var<storage, read> b: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    result[word] = pack2x16float(unpack2x16float(a[word]) - unpack2x16float(b[word]));
}
`

// mulShaderF16 performs element-wise float16 multiplication.
const mulShaderF16 = `
@group(0) @binding(0) var<storage, read> a: array<u32>;
@group(0) @binding(1) var<storage, read> b: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    result[word] = pack2x16float(unpack2x16float(a[word]) * unpack2x16float(b[word]));
}
`

// divShaderF16 performs element-wise float16 division.
const divShaderF16 = `
@group(0) @binding(0) var<storage, read> a: array<u32>;
@group(0) @binding(1) var<storage, read> b: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    result[word] = pack2x16float(unpack2x16float(a[word]) / unpack2x16float(b[word]));
}
`

// addShaderBF16 performs element-wise bfloat16 addition.
const addShaderBF16 = bf16Common + `
@group(0) @binding(0) var<storage, read> a: array<u32>;
@group(0) @binding(1) var<storage, read> b: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    result[word] = bf16_encode2(bf16_decode2(a[word]) + bf16_decode2(b[word]));
}
`

// subShaderBF16 performs element-wise bfloat16 subtraction.
const subShaderBF16 = bf16Common + `
@group(0) @binding(0) var<storage, read> a: array<u32>;
@group(0) @binding(1) var<storage, read> b: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    result[word] = bf16_encode2(bf16_decode2(a[word]) - bf16_decode2(b[word]));
}
`

// mulShaderBF16 performs element-wise bfloat16 multiplication.
const mulShaderBF16 = bf16Common + `
@group(0) @binding(0) var<storage, read> a: array<u32>;
@group(0) @binding(1) var<storage, read> b: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    result[word] = bf16_encode2(bf16_decode2(a[word]) * bf16_decode2(b[word]));
}
`

// divShaderBF16 performs element-wise bfloat16 division.
const divShaderBF16 = bf16Common + `
@group(0) @binding(0) var<storage, read> a: array<u32>;
@group(0) @binding(1) var<storage, read> b: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    result[word] = bf16_encode2(bf16_decode2(a[word]) / bf16_decode2(b[word]));
}
`

// matmulShader performs matrix multiplication: C = A @ B.
// A is [M, K], B is [K, N], C is [M, N].
const matmulShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    m: u32,
    k: u32,
    n: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;

    if (row >= params.m || col >= params.n) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.k; k = k + 1u) {
        sum = sum + a[row * params.k + k] * b[k * params.n + col];
    }

    result[row * params.n + col] = sum;
}
`

// matmulShaderF16 multiplies float16 matrices with float32 accumulation.
// One invocation computes one packed output word (two dot products).
const matmulShaderF16 = `
@group(0) @binding(0) var<storage, read> a: array<u32>;
@group(0) @binding(1) var<storage, read> b: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    m: u32,
    k: u32,
    n: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

fn dot_rc(row: u32, col: u32) -> f32 {
    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.k; k = k + 1u) {
        let ai = row * params.k + k;
        let bi = k * params.n + col;
        sum = sum + unpack2x16float(a[ai >> 1u])[ai & 1u] * unpack2x16float(b[bi >> 1u])[bi & 1u];
    }
    return sum;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    let total = params.m * params.n;
    let e0 = word * 2u;
    if (e0 >= total) {
        return;
    }
    var pair = vec2<f32>(dot_rc(e0 / params.n, e0 % params.n), 0.0);
    if (e0 + 1u < total) {
        pair.y = dot_rc((e0 + 1u) / params.n, (e0 + 1u) % params.n);
    }
    result[word] = pack2x16float(pair);
}
`

// matmulShaderBF16 multiplies bfloat16 matrices with float32 accumulation.
const matmulShaderBF16 = bf16Common + `
@group(0) @binding(0) var<storage, read> a: array<u32>;
@group(0) @binding(1) var<storage, read> b: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    m: u32,
    k: u32,
    n: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

fn dot_rc(row: u32, col: u32) -> f32 {
    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.k; k = k + 1u) {
        let ai = row * params.k + k;
        let bi = k * params.n + col;
        sum = sum + bf16_load(a[ai >> 1u], ai & 1u) * bf16_load(b[bi >> 1u], bi & 1u);
    }
    return sum;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    let total = params.m * params.n;
    let e0 = word * 2u;
    if (e0 >= total) {
        return;
    }
    var pair = vec2<f32>(dot_rc(e0 / params.n, e0 % params.n), 0.0);
    if (e0 + 1u < total) {
        pair.y = dot_rc((e0 + 1u) / params.n, (e0 + 1u) % params.n);
    }
    result[word] = bf16_encode2(pair);
}
`

// transposeShader transposes a 2D matrix.
const transposeShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    rows: u32,
    cols: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;

    if (row >= params.rows || col >= params.cols) {
        return;
    }

    result[col * params.rows + row] = input[row * params.cols + col];
}
`

// transposeShaderF16 transposes a float16 matrix, writing one packed
// output word per invocation with gathered reads.
const transposeShaderF16 = `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<u32>;

struct Params {
    rows: u32,
    cols: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

fn src_index(e: u32) -> u32 {
    return (e % params.rows) * params.cols + e / params.rows;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    let total = params.rows * params.cols;
    let e0 = word * 2u;
    if (e0 >= total) {
        return;
    }
    let s0 = src_index(e0);
    var pair = vec2<f32>(unpack2x16float(input[s0 >> 1u])[s0 & 1u], 0.0);
    if (e0 + 1u < total) {
        let s1 = src_index(e0 + 1u);
        pair.y = unpack2x16float(input[s1 >> 1u])[s1 & 1u];
    }
    result[word] = pack2x16float(pair);
}
`

// transposeShaderBF16 transposes a bfloat16 matrix.
const transposeShaderBF16 = bf16Common + `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<u32>;

struct Params {
    rows: u32,
    cols: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

fn src_index(e: u32) -> u32 {
    return (e % params.rows) * params.cols + e / params.rows;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    let total = params.rows * params.cols;
    let e0 = word * 2u;
    if (e0 >= total) {
        return;
    }
    let s0 = src_index(e0);
    var pair = vec2<f32>(bf16_load(input[s0 >> 1u], s0 & 1u), 0.0);
    if (e0 + 1u < total) {
        let s1 = src_index(e0 + 1u);
        pair.y = bf16_load(input[s1 >> 1u], s1 & 1u);
    }
    result[word] = bf16_encode2(pair);
}
`

// scalarMulShader performs scalar multiplication: result = x * scalar.
const scalarMulShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    scalar: f32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = input[idx] * params.scalar;
    }
}
`

// scalarMulShaderF16 performs float16 scalar multiplication.
const scalarMulShaderF16 = `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
    scalar: f32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    result[word] = pack2x16float(unpack2x16float(input[word]) * params.scalar);
}
`

// scalarMulShaderBF16 performs bfloat16 scalar multiplication.
const scalarMulShaderBF16 = bf16Common + `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
    scalar: f32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    result[word] = bf16_encode2(bf16_decode2(input[word]) * params.scalar);
}
`

// scaleShader multiplies a buffer by alpha in place.
const scaleShader = `
@group(0) @binding(0) var<storage, read_write> data: array<f32>;

struct Params {
    size: u32,
    alpha: f32,
}
@group(0) @binding(1) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        data[idx] = data[idx] * params.alpha;
    }
}
`

// scaleShaderF16 multiplies a packed float16 buffer by alpha in place.
const scaleShaderF16 = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

struct Params {
    size: u32,
    alpha: f32,
}
@group(0) @binding(1) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    data[word] = pack2x16float(unpack2x16float(data[word]) * params.alpha);
}
`

// scaleShaderBF16 multiplies a packed bfloat16 buffer by alpha in place.
const scaleShaderBF16 = bf16Common + `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

struct Params {
    size: u32,
    alpha: f32,
}
@group(0) @binding(1) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    data[word] = bf16_encode2(bf16_decode2(data[word]) * params.alpha);
}
`

// castF16ToF32Shader widens packed float16 elements to float32.
const castF16ToF32Shader = `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = unpack2x16float(input[idx >> 1u])[idx & 1u];
    }
}
`

// castBF16ToF32Shader widens packed bfloat16 elements to float32.
const castBF16ToF32Shader = bf16Common + `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = bf16_load(input[idx >> 1u], idx & 1u);
    }
}
`

// castF32ToF16Shader narrows float32 elements into packed float16 words.
const castF32ToF16Shader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    let e0 = word * 2u;
    if (e0 >= params.size) {
        return;
    }
    var pair = vec2<f32>(input[e0], 0.0);
    if (e0 + 1u < params.size) {
        pair.y = input[e0 + 1u];
    }
    result[word] = pack2x16float(pair);
}
`

// castF32ToBF16Shader narrows float32 elements into packed bfloat16 words.
const castF32ToBF16Shader = bf16Common + `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    let e0 = word * 2u;
    if (e0 >= params.size) {
        return;
    }
    var pair = vec2<f32>(input[e0], 0.0);
    if (e0 + 1u < params.size) {
        pair.y = input[e0 + 1u];
    }
    result[word] = bf16_encode2(pair);
}
`

// globalSumShader produces one partial sum per workgroup using shared
// memory reduction; the host adds the partials.
const globalSumShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

var<workgroup> shared_data: array<f32, 256>;

@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(local_invocation_id) local_id: vec3<u32>,
    @builtin(workgroup_id) workgroup_id: vec3<u32>
) {
    let tid = local_id.x;
    let gid = global_id.x;

    if (gid < params.size) {
        shared_data[tid] = input[gid];
    } else {
        shared_data[tid] = 0.0;
    }
    workgroupBarrier();

    for (var s: u32 = 128u; s > 0u; s = s >> 1u) {
        if (tid < s) {
            shared_data[tid] = shared_data[tid] + shared_data[tid + s];
        }
        workgroupBarrier();
    }

    if (tid == 0u) {
        result[workgroup_id.x] = shared_data[0];
    }
}
`

// globalSumShaderF16 produces float32 partial sums over packed float16
// input.
const globalSumShaderF16 = `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

var<workgroup> shared_data: array<f32, 256>;

@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(local_invocation_id) local_id: vec3<u32>,
    @builtin(workgroup_id) workgroup_id: vec3<u32>
) {
    let tid = local_id.x;
    let gid = global_id.x;

    if (gid < params.size) {
        shared_data[tid] = unpack2x16float(input[gid >> 1u])[gid & 1u];
    } else {
        shared_data[tid] = 0.0;
    }
    workgroupBarrier();

    for (var s: u32 = 128u; s > 0u; s = s >> 1u) {
        if (tid < s) {
            shared_data[tid] = shared_data[tid] + shared_data[tid + s];
        }
        workgroupBarrier();
    }

    if (tid == 0u) {
        result[workgroup_id.x] = shared_data[0];
    }
}
`

// globalSumShaderBF16 produces float32 partial sums over packed bfloat16
// input.
const globalSumShaderBF16 = bf16Common + `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

var<workgroup> shared_data: array<f32, 256>;

@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(local_invocation_id) local_id: vec3<u32>,
    @builtin(workgroup_id) workgroup_id: vec3<u32>
) {
    let tid = local_id.x;
    let gid = global_id.x;

    if (gid < params.size) {
        shared_data[tid] = bf16_load(input[gid >> 1u], gid & 1u);
    } else {
        shared_data[tid] = 0.0;
    }
    workgroupBarrier();

    for (var s: u32 = 128u; s > 0u; s = s >> 1u) {
        if (tid < s) {
            shared_data[tid] = shared_data[tid] + shared_data[tid + s];
        }
        workgroupBarrier();
    }

    if (tid == 0u) {
        result[workgroup_id.x] = shared_data[0];
    }
}
`

// sumSquaresShader produces partial sums of squared elements.
const sumSquaresShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

var<workgroup> shared_data: array<f32, 256>;

@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(local_invocation_id) local_id: vec3<u32>,
    @builtin(workgroup_id) workgroup_id: vec3<u32>
) {
    let tid = local_id.x;
    let gid = global_id.x;

    if (gid < params.size) {
        let v = input[gid];
        shared_data[tid] = v * v;
    } else {
        shared_data[tid] = 0.0;
    }
    workgroupBarrier();

    for (var s: u32 = 128u; s > 0u; s = s >> 1u) {
        if (tid < s) {
            shared_data[tid] = shared_data[tid] + shared_data[tid + s];
        }
        workgroupBarrier();
    }

    if (tid == 0u) {
        result[workgroup_id.x] = shared_data[0];
    }
}
`

// sumSquaresShaderF16 produces partial sums of squared float16 elements.
const sumSquaresShaderF16 = `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

var<workgroup> shared_data: array<f32, 256>;

@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(local_invocation_id) local_id: vec3<u32>,
    @builtin(workgroup_id) workgroup_id: vec3<u32>
) {
    let tid = local_id.x;
    let gid = global_id.x;

    if (gid < params.size) {
        let v = unpack2x16float(input[gid >> 1u])[gid & 1u];
        shared_data[tid] = v * v;
    } else {
        shared_data[tid] = 0.0;
    }
    workgroupBarrier();

    for (var s: u32 = 128u; s > 0u; s = s >> 1u) {
        if (tid < s) {
            shared_data[tid] = shared_data[tid] + shared_data[tid + s];
        }
        workgroupBarrier();
    }

    if (tid == 0u) {
        result[workgroup_id.x] = shared_data[0];
    }
}
`

// sumSquaresShaderBF16 produces partial sums of squared bfloat16 elements.
const sumSquaresShaderBF16 = bf16Common + `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

var<workgroup> shared_data: array<f32, 256>;

@compute @workgroup_size(256)
fn main(
    @builtin(global_invocation_id) global_id: vec3<u32>,
    @builtin(local_invocation_id) local_id: vec3<u32>,
    @builtin(workgroup_id) workgroup_id: vec3<u32>
) {
    let tid = local_id.x;
    let gid = global_id.x;

    if (gid < params.size) {
        let v = bf16_load(input[gid >> 1u], gid & 1u);
        shared_data[tid] = v * v;
    } else {
        shared_data[tid] = 0.0;
    }
    workgroupBarrier();

    for (var s: u32 = 128u; s > 0u; s = s >> 1u) {
        if (tid < s) {
            shared_data[tid] = shared_data[tid] + shared_data[tid + s];
        }
        workgroupBarrier();
    }

    if (tid == 0u) {
        result[workgroup_id.x] = shared_data[0];
    }
}
`

// sumDimShader sums along one dimension of a tensor viewed as
// [outer, dim, inner]; one invocation per output element.
const sumDimShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    outer: u32,
    dim: u32,
    inner: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.outer * params.inner) {
        return;
    }

    let outer_idx = idx / params.inner;
    let inner_idx = idx % params.inner;

    var sum: f32 = 0.0;
    for (var d: u32 = 0u; d < params.dim; d = d + 1u) {
        sum = sum + input[(outer_idx * params.dim + d) * params.inner + inner_idx];
    }

    result[idx] = sum;
}
`

// sumDimShaderF16 sums float16 elements along one dimension, one packed
// output word per invocation.
const sumDimShaderF16 = `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<u32>;

struct Params {
    outer: u32,
    dim: u32,
    inner: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

fn sum_at(e: u32) -> f32 {
    let outer_idx = e / params.inner;
    let inner_idx = e % params.inner;
    var sum: f32 = 0.0;
    for (var d: u32 = 0u; d < params.dim; d = d + 1u) {
        let src = (outer_idx * params.dim + d) * params.inner + inner_idx;
        sum = sum + unpack2x16float(input[src >> 1u])[src & 1u];
    }
    return sum;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    let total = params.outer * params.inner;
    let e0 = word * 2u;
    if (e0 >= total) {
        return;
    }
    var pair = vec2<f32>(sum_at(e0), 0.0);
    if (e0 + 1u < total) {
        pair.y = sum_at(e0 + 1u);
    }
    result[word] = pack2x16float(pair);
}
`

// sumDimShaderBF16 sums bfloat16 elements along one dimension.
const sumDimShaderBF16 = bf16Common + `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<u32>;

struct Params {
    outer: u32,
    dim: u32,
    inner: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

fn sum_at(e: u32) -> f32 {
    let outer_idx = e / params.inner;
    let inner_idx = e % params.inner;
    var sum: f32 = 0.0;
    for (var d: u32 = 0u; d < params.dim; d = d + 1u) {
        let src = (outer_idx * params.dim + d) * params.inner + inner_idx;
        sum = sum + bf16_load(input[src >> 1u], src & 1u);
    }
    return sum;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    let total = params.outer * params.inner;
    let e0 = word * 2u;
    if (e0 >= total) {
        return;
    }
    var pair = vec2<f32>(sum_at(e0), 0.0);
    if (e0 + 1u < total) {
        pair.y = sum_at(e0 + 1u);
    }
    result[word] = bf16_encode2(pair);
}
`

// nonFiniteShader bumps an atomic counter for every NaN or Inf element,
// detected on the exponent bits.
const nonFiniteShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> found: atomic<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        let bits = bitcast<u32>(input[idx]);
        if ((bits & 0x7F800000u) == 0x7F800000u) {
            atomicAdd(&found, 1u);
        }
    }
}
`

// nonFiniteShaderF16 checks packed float16 words on the raw exponent
// bits without decoding. Padding halves are zero and never trigger.
const nonFiniteShaderF16 = `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> found: atomic<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    let w = input[word];
    if ((w & 0x7C00u) == 0x7C00u || ((w >> 16u) & 0x7C00u) == 0x7C00u) {
        atomicAdd(&found, 1u);
    }
}
`

// nonFiniteShaderBF16 checks packed bfloat16 words on the raw exponent
// bits.
const nonFiniteShaderBF16 = `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> found: atomic<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let word = global_id.x;
    if (word * 2u >= params.size) {
        return;
    }
    let w = input[word];
    if ((w & 0x7F80u) == 0x7F80u || ((w >> 16u) & 0x7F80u) == 0x7F80u) {
        atomicAdd(&found, 1u);
    }
}
`
