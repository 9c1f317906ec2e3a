// Package domain models hourly surface weather observations and the forecasts
// derived from them.
//
// # Data Source
//
// Observations originate from a station that writes into a Firebase Realtime
// Database. Each measured quantity uses the NASA POWER parameter name so that
// models trained on POWER hourly exports can consume station data unchanged:
//
//	QV2M                 relative humidity at 2 m (%)
//	PRECTOTCORR          corrected precipitation (mm/h)
//	PS                   surface pressure (Pa in the station feed)
//	T2M                  temperature at 2 m (°C)
//	ALLSKY_SFC_PAR_TOT   all-sky surface PAR total (W/m²)
//
// Sub-sources deliver partial records for the same hour. [Accumulator] joins
// them by hour key and only emits an [Observation] once every quantity is
// present. Absent quantities are never treated as zero.
//
// # Feature Conventions
//
// Derived features are computed on the hourly grid, not on row positions:
// a lag of L hours looks up the observation exactly L hours earlier, and a
// rolling window of W hours requires all W hours to be present. A feature
// that cannot be computed leaves the row incomplete, and incomplete rows are
// excluded by [BuildFeatures].
//
//	Cyclical:     hour_sin/hour_cos (period 24), month_sin/month_cos (period 12)
//	Seasonal:     is_monsoon (Sep–Dec), is_typhoon_season (Jun–Nov)
//	Differences:  temp_Lh, humidity_Lh, pressure_Lh for L in 1, 3, 6, 12, 24
//	Rolling:      <param>_mean_6h, _mean_24h, _std_6h, _std_24h
//	Composite:    dew_point = T2M - (100 - QV2M)/5, temp_dew_diff, is_daytime,
//	              rain_favorable, high_humidity, pressure_drop_Lh
//	Interaction:  temp_humidity, pressure_temp
//
// # Classification
//
// Daily rain summaries are classified from the maximum hourly probability
// (percent): RAINY when > 70, CLOUDY when > 40, SUNNY otherwise.
//
// # Wire Formats
//
// Timestamps cross the service boundary as "YYYY-MM-DD HH:MM:SS" and dates as
// "YYYY-MM-DD", both in UTC.
package domain
