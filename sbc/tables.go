package sbc

// Fixed-point tables from the Bluetooth A2DP specification. Prototype
// filter coefficients are Q15, cosine modulation matrices Q14.

// proto880 holds the 80 prototype filter coefficients for 8-subband
// analysis, 10 per subband.
var proto880 = [80]int32{
	0x00000000,
	0x00000083,
	-2877,
	0x00001649,
	-9735,
	0x000061EC,
	-36987,
	0x0001A8B6,
	-212481,
	0x000AC911,

	0x00000001,
	-127,
	0x00000B67,
	-5704,
	0x0000267A,
	-15248,
	0x00009F97,
	-107119,
	0x00038083,
	-664312,

	0x00000002,
	-238,
	0x000005A0,
	-3217,
	0x00000C9D,
	-6530,
	0x00003F27,
	-29167,
	0x0000DF5D,
	-203322,

	0x00000001,
	-26,
	0x00000110,
	-955,
	-15,
	-1322,
	-1722,
	0x00000336,
	-10336,
	0x00002C05,

	0x00000000,
	0x00000000,
	-15,
	0x00000030,
	-166,
	0x0000015D,
	-1252,
	0x00000951,
	-7316,
	0x000046E6,

	0x00000000,
	0x00000001,
	-11,
	0x0000002B,
	-130,
	0x000000D8,
	-417,
	0x000003A9,
	-2481,
	0x000014F2,

	0x00000000,
	0x00000000,
	-3,
	0x0000000A,
	-37,
	0x0000002D,
	-82,
	0x00000069,
	-147,
	0x00000099,

	0x00000000,
	0x00000000,
	0x00000000,
	0x00000001,
	-4,
	0x00000006,
	-7,
	0x00000009,
	-3,
	0x00000003,
}

// proto440 holds the 40 prototype filter coefficients for 4-subband
// analysis.
var proto440 = [40]int32{
	0x00000000,
	0x00000166,
	-5779,
	0x00002C95,
	-19470,
	0x0000C3D9,
	-73976,
	0x00035142,
	-424964,
	0x00159222,

	0x00000002,
	-253,
	0x000016B4,
	-11408,
	0x00004CD5,
	-30496,
	0x00013F4F,
	-214238,
	0x00070107,
	-1328624,

	0x00000000,
	0x00000000,
	-15,
	0x00000061,
	-332,
	0x000002BA,
	-2504,
	0x000012A2,
	-14631,
	0x00008DCC,

	0x00000000,
	0x00000000,
	-3,
	0x00000009,
	-43,
	0x0000003B,
	-104,
	0x0000007A,
	-67,
	0x00000046,
}

// cosTable8 is the 8-subband cosine modulation matrix:
// cos(pi/8 * (k+0.5) * (2n+5)) for k,n in 0..7.
var cosTable8 = [8][8]int32{
	{0x2D41, 0x2D41, 0x2D41, 0x2D41, 0x2D41, 0x2D41, 0x2D41, 0x2D41},
	{0x3B21, 0x3B21, 0x187E, -0x187E, -0x3B21, -0x3B21, -0x187E, 0x187E},
	{0x3B21, 0x0000, -0x3B21, -0x3B21, 0x0000, 0x3B21, 0x3B21, 0x0000},
	{0x3B21, -0x187E, -0x3B21, 0x187E, 0x3B21, -0x187E, -0x3B21, 0x187E},
	{0x2D41, -0x2D41, -0x2D41, 0x2D41, 0x2D41, -0x2D41, -0x2D41, 0x2D41},
	{0x187E, -0x3B21, 0x187E, 0x187E, -0x3B21, 0x187E, 0x187E, -0x3B21},
	{0x0000, -0x3B21, 0x3B21, 0x0000, -0x3B21, 0x3B21, 0x0000, -0x3B21},
	{-0x187E, -0x187E, 0x3B21, -0x3B21, 0x187E, 0x187E, -0x3B21, 0x3B21},
}

// cosTable4 is the 4-subband cosine modulation matrix.
var cosTable4 = [4][4]int32{
	{0x2D41, 0x2D41, 0x2D41, 0x2D41},
	{0x3B21, 0x187E, -0x187E, -0x3B21},
	{0x2D41, -0x2D41, -0x2D41, 0x2D41},
	{0x187E, -0x3B21, 0x3B21, -0x187E},
}

// loudnessOffset8 holds psychoacoustic bit allocation offsets,
// indexed by [sampling frequency][subband].
var loudnessOffset8 = [4][8]int8{
	{-1, 0, 0, 0, 0, 0, 0, 1}, // 16 kHz
	{-2, 0, 0, 0, 0, 0, 1, 2}, // 32 kHz
	{-2, 0, 0, 0, 0, 0, 1, 2}, // 44.1 kHz
	{-2, 0, 0, 0, 0, 0, 1, 2}, // 48 kHz
}

// loudnessOffset4 is the 4-subband equivalent.
var loudnessOffset4 = [4][4]int8{
	{-1, 0, 0, 1}, // 16 kHz
	{-2, 0, 0, 2}, // 32 kHz
	{-2, 0, 0, 2}, // 44.1 kHz
	{-2, 0, 0, 2}, // 48 kHz
}

// scaleFactorLevels maps a scale factor to 2^(sf+1) for quantization.
var scaleFactorLevels = [16]int32{
	2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768, 65536,
}
