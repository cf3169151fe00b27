package catalog

/* PostgreSQL catalog const */

// BOOLOID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L34 /* #no-spell-check-line */
const BOOLOID = 16 /* #no-spell-check-line */

// BYTEAOID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L39 /* #no-spell-check-line */
const BYTEAOID = 17 /* #no-spell-check-line */

// INT8OID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L55 /* #no-spell-check-line */
const INT8OID = 20 /* #no-spell-check-line */

// INT2OID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L62 /* #no-spell-check-line */
const INT2OID = 21 /* #no-spell-check-line */

// INT4OID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L74 /* #no-spell-check-line */
const INT4OID = 23 /* #no-spell-check-line */

// TEXTOID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L81 /* #no-spell-check-line */
const TEXTOID = 25 /* #no-spell-check-line */

// XMLOID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L131 /* #no-spell-check-line */
const XMLOID = 142 /* #no-spell-check-line */

// FLOAT4OID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L216 /* #no-spell-check-line */
const FLOAT4OID = 700 /* #no-spell-check-line */

// DOUBLEOID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L223 /* #no-spell-check-line */
const DOUBLEOID = 701 /* #no-spell-check-line */

// VARCHAROID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L303 /* #no-spell-check-line */
const VARCHAROID = 1043 /* #no-spell-check-line */

// DATEOID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L309 /* #no-spell-check-line */
const DATEOID = 1082 /* #no-spell-check-line */

// TIMESTAMPOID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L323 /* #no-spell-check-line */
const TIMESTAMPOID = 1114 /* #no-spell-check-line */

// TIMESTAMPTZOID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L330 /* #no-spell-check-line */
const TIMESTAMPTZOID = 1184 /* #no-spell-check-line */

// NUMERICOID https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat#L364 /* #no-spell-check-line */
const NUMERICOID = 1700 /* #no-spell-check-line */
